/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package types

import "time"

// VpsctlOptions is the struct that represents the options for the Vpsctl
// struct.
type VpsctlOptions struct {
	// StorePath is the path to the directory where the sqlite database
	// will be stored.
	StorePath string `json:"store_path" flag:"storePath,string"`

	// MainAdminId is the actor who is always privileged. It is never stored
	// in the admin list and can not be removed.
	MainAdminId string `json:"main_admin_id" validate:"required" jsonschema:"required" flag:"mainAdminId,string"`

	// Image is the image new containers are initialized from.
	Image string `json:"image" validate:"required" flag:"image,string"`

	// StoragePool is the default storage pool for new containers.
	StoragePool string `json:"storage_pool" validate:"required" flag:"storagePool,string"`

	// NamePrefix is the prefix of the generated container identifiers.
	NamePrefix string `json:"name_prefix" validate:"required" flag:"namePrefix,string"`

	// Profiles is the list of runtime profiles applied to new containers.
	Profiles []string `json:"profiles" flag:"profiles,strings"`

	// LxcBinPath is the path to the lxc client binary.
	LxcBinPath string `json:"lxc_bin_path" flag:"lxcBinPath,string"`

	// CpuThreshold and RamThreshold are the usage percentages above which
	// the monitors act.
	CpuThreshold int `json:"cpu_threshold" validate:"gt=0,lte=100" jsonschema:"minimum=1,maximum=100" flag:"cpuThreshold,int"`
	RamThreshold int `json:"ram_threshold" validate:"gt=0,lte=100" jsonschema:"minimum=1,maximum=100" flag:"ramThreshold,int"`

	// CheckInterval is the workload monitor sweep interval in seconds.
	CheckInterval int `json:"check_interval" validate:"gt=0" flag:"checkInterval,int"`

	// CommandTimeout is the default timeout of runtime commands in seconds,
	// InstallTimeout is used for slow operations like package installation.
	CommandTimeout int `json:"command_timeout" validate:"gt=0" flag:"commandTimeout,int"`
	InstallTimeout int `json:"install_timeout" validate:"gt=0" flag:"installTimeout,int"`

	// ConfirmationWindow is how long, in seconds, a destructive action waits
	// for confirmation before silently expiring.
	ConfirmationWindow int `json:"confirmation_window" validate:"gt=0" flag:"confirmationWindow,int"`

	// HostMonitor and WorkloadMonitor enable the background monitors at
	// startup, both can be toggled at runtime.
	HostMonitor     bool `json:"host_monitor" flag:"hostMonitor,bool"`
	WorkloadMonitor bool `json:"workload_monitor" flag:"workloadMonitor,bool"`

	// Listen is the address the command API listens on.
	Listen string `json:"listen" flag:"listen,string"`

	// JwtSecret is the shared secret used to sign actor tokens.
	JwtSecret string `json:"jwt_secret" flag:"jwtSecret,string"`

	// AmqpUrl, when set, enables publishing of events to RabbitMQ on the
	// AmqpExchange exchange.
	AmqpUrl      string `json:"amqp_url" flag:"amqpUrl,string"`
	AmqpExchange string `json:"amqp_exchange" flag:"amqpExchange,string"`

	// RedisAddr, when set, makes pending confirmations live in Redis instead
	// of the process memory.
	RedisAddr     string `json:"redis_addr" flag:"redisAddr,string"`
	RedisPassword string `json:"redis_password" flag:"redisPassword,string"`
	RedisDb       int    `json:"redis_db" flag:"redisDb,int"`

	// LogLevel and LogFormat (text or json) configure the process logger.
	LogLevel  string `json:"log_level" flag:"logLevel,string"`
	LogFormat string `json:"log_format" jsonschema:"enum=text,enum=json" flag:"logFormat,string"`
}

// CheckIntervalDuration returns the workload monitor interval.
func (o VpsctlOptions) CheckIntervalDuration() time.Duration {
	return time.Duration(o.CheckInterval) * time.Second
}

// CommandTimeoutDuration returns the default runtime command timeout.
func (o VpsctlOptions) CommandTimeoutDuration() time.Duration {
	return time.Duration(o.CommandTimeout) * time.Second
}

// InstallTimeoutDuration returns the timeout for slow runtime commands.
func (o VpsctlOptions) InstallTimeoutDuration() time.Duration {
	return time.Duration(o.InstallTimeout) * time.Second
}

// ConfirmationWindowDuration returns the confirmation expiry window.
func (o VpsctlOptions) ConfirmationWindowDuration() time.Duration {
	return time.Duration(o.ConfirmationWindow) * time.Second
}
