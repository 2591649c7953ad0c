/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package vpsctl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/mirkobrombin/vpsctl/pkg/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ownerNameRules keep an owner usable inside a runtime container name.
const ownerNameRules = "max=32,lowercase,excludes=.,hostname_rfc1123"

// DefaultOptions returns the options used when no options file exists,
// rooted at installationPath.
func DefaultOptions(installationPath string) types.VpsctlOptions {
	return types.VpsctlOptions{
		StorePath:          filepath.Join(installationPath, "store"),
		Image:              "ubuntu:22.04",
		StoragePool:        "default",
		NamePrefix:         "vps",
		Profiles:           []string{"default"},
		LxcBinPath:         "lxc",
		CpuThreshold:       90,
		RamThreshold:       90,
		CheckInterval:      600,
		CommandTimeout:     120,
		InstallTimeout:     600,
		ConfirmationWindow: 60,
		HostMonitor:        true,
		WorkloadMonitor:    true,
		Listen:             "127.0.0.1:8642",
		AmqpExchange:       DefaultEventExchange,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// OptionsPaths returns the candidate options files in priority order:
//  1. the VPSCTL_OPTS_FILE environment variable, used as the sole source
//     when set;
//  2. otherwise "~/.config/vpsctl/vpsctl.json", "/etc/vpsctl/vpsctl.json"
//     and "/usr/share/vpsctl/vpsctl.json".
func OptionsPaths() ([]string, error) {
	if p := os.Getenv("VPSCTL_OPTS_FILE"); p != "" {
		return []string{p}, nil
	}

	homedir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(homedir, ".config", "vpsctl", "vpsctl.json"),
		filepath.Join("/", "etc", "vpsctl", "vpsctl.json"),
		filepath.Join("/", "usr", "share", "vpsctl", "vpsctl.json"),
	}, nil
}

// GetVpsctlOptions reads the options following a defined priority order:
//  1. The first existing file of OptionsPaths is loaded, on top of the
//     defaults.
//  2. If no file is found, the defaults are rooted at the installation
//     path from VPSCTL_INSTALLATION_PATH, or "~/.local/share/vpsctl".
//  3. Environment variables override single keys in both cases.
//
// The options are not validated here, commands talking to a running server
// only need the listen address and the token secret.
func GetVpsctlOptions() (options types.VpsctlOptions, path string, err error) {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return
	}

	installationPath := os.Getenv("VPSCTL_INSTALLATION_PATH")
	if installationPath == "" {
		installationPath = filepath.Join(homedir, ".local", "share", "vpsctl")
	}
	options = DefaultOptions(installationPath)

	confPaths, err := OptionsPaths()
	if err != nil {
		return
	}
	for _, confPath := range confPaths {
		if _, statErr := os.Stat(confPath); statErr == nil {
			options, err = ReadOptions(confPath, options)
			if err != nil {
				return
			}
			path = confPath
			break
		}
	}

	err = ApplyEnv(&options)
	return
}

// ReadOptions decodes the options file at path on top of base.
func ReadOptions(path string, base types.VpsctlOptions) (types.VpsctlOptions, error) {
	file, err := os.Open(path)
	if err != nil {
		return base, err
	}
	defer file.Close()

	options := base
	if err := json.NewDecoder(file).Decode(&options); err != nil {
		return base, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return options, nil
}

// SaveOptions writes the options file at path.
func SaveOptions(path string, options types.VpsctlOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(options, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ApplyEnv overrides options with the environment.
func ApplyEnv(o *types.VpsctlOptions) error {
	strs := map[string]*string{
		"MAIN_ADMIN_ID":        &o.MainAdminId,
		"DEFAULT_STORAGE_POOL": &o.StoragePool,
		"VPSCTL_IMAGE":         &o.Image,
		"VPSCTL_LXC_BIN":       &o.LxcBinPath,
		"VPSCTL_STORE_PATH":    &o.StorePath,
		"VPSCTL_LISTEN":        &o.Listen,
		"VPSCTL_JWT_SECRET":    &o.JwtSecret,
		"VPSCTL_AMQP_URL":      &o.AmqpUrl,
		"VPSCTL_REDIS_ADDR":    &o.RedisAddr,
		"VPSCTL_LOG_LEVEL":     &o.LogLevel,
		"VPSCTL_LOG_FORMAT":    &o.LogFormat,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CPU_THRESHOLD":          &o.CpuThreshold,
		"RAM_THRESHOLD":          &o.RamThreshold,
		"CHECK_INTERVAL":         &o.CheckInterval,
		"VPSCTL_COMMAND_TIMEOUT": &o.CommandTimeout,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}
	return nil
}

// ValidateOptions checks the options a server needs.
func ValidateOptions(o types.VpsctlOptions) error {
	if err := validate.Struct(o); err != nil {
		return &Error{Kind: KindValidation, Op: "options", Err: err}
	}
	return nil
}

// OptionsSchema returns the JSON schema of the options file.
func OptionsSchema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{ExpandedStruct: true, RequiredFromJSONSchemaTags: true}
	return reflector.Reflect(&types.VpsctlOptions{})
}

// ValidateOptionsFile checks an options file against OptionsSchema and
// returns the violations found.
func ValidateOptionsFile(path string) ([]string, error) {
	schemaBytes, err := json.Marshal(OptionsSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewReferenceLoader("file://"+abs),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return problems, nil
}
