/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirkobrombin/vpsctl/pkg/api"
	"github.com/mirkobrombin/vpsctl/pkg/tools"
	"github.com/mirkobrombin/vpsctl/pkg/types"
	"github.com/mirkobrombin/vpsctl/pkg/vpsctl"
)

// addClientFlags registers the flags shared by every command talking to a
// running server.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("as", "", "Act as this actor, the token is signed with the configured secret")
	cmd.Flags().String("token", "", "Use this token instead of signing one (default $VPSCTL_TOKEN)")
	cmd.Flags().String("server", "", "Address of the server (default: the configured listen address)")
	cmd.Flags().BoolP("json", "j", false, "Print output in JSON format")
}

// newClient builds an API client from the client flags. Without a token,
// one is signed for the --as actor, or for the main admin.
func newClient(cmd *cobra.Command) (*api.Client, error) {
	options, _, err := vpsctl.GetVpsctlOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to read options: %w", err)
	}

	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = options.Listen
	}

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("VPSCTL_TOKEN")
	}
	if token == "" {
		actor, _ := cmd.Flags().GetString("as")
		if actor == "" {
			actor = options.MainAdminId
		}
		if actor == "" {
			return nil, fmt.Errorf("no actor: pass --as, --token or configure main_admin_id")
		}
		if options.JwtSecret == "" {
			return nil, fmt.Errorf("no token: pass --token or configure jwt_secret")
		}
		token, err = api.MintToken([]byte(options.JwtSecret), actor, 5*time.Minute)
		if err != nil {
			return nil, err
		}
	}
	return api.NewClient(server, token), nil
}

func wantJSON(cmd *cobra.Command) bool {
	j, _ := cmd.Flags().GetBool("json")
	return j
}

func printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}

// containerPath returns the API path of a container, with an optional
// action suffix.
func containerPath(id string, action ...string) string {
	p := "/v1/containers/" + url.PathEscape(id)
	for _, a := range action {
		p += "/" + a
	}
	return p
}

// ownerPath returns the API path addressing the number-th container of
// owner.
func ownerPath(owner string, number int) string {
	return "/v1/owners/" + url.PathEscape(owner) + "/containers/" + strconv.Itoa(number)
}

// resourceChange reads the --ram, --cpu and --disk flags, leaving out the
// ones not given.
func resourceChange(cmd *cobra.Command) types.ResourceChange {
	var change types.ResourceChange
	pick := func(name string) *int {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		v, _ := cmd.Flags().GetInt(name)
		return &v
	}
	change.RamGB = pick("ram")
	change.CpuCores = pick("cpu")
	change.DiskGB = pick("disk")
	return change
}

func addResourceFlags(cmd *cobra.Command, ram, cpu, disk int) {
	cmd.Flags().Int("ram", ram, "Memory in GB")
	cmd.Flags().Int("cpu", cpu, "CPU cores")
	cmd.Flags().Int("disk", disk, "Disk in GB")
}

func showContainers(list []types.OwnedContainer) {
	header := []string{"#", "Id", "Owner", "Status", "Config", "Created"}
	data := [][]string{}
	for _, c := range list {
		data = append(data, []string{
			strconv.Itoa(c.Number),
			c.Container.Id,
			c.Container.OwnerId,
			c.Container.StatusText(),
			c.Container.Config(),
			c.Container.CreatedAt.Format(time.RFC3339),
		})
	}
	tools.ShowTable(header, data)
}

func showContainer(c types.Container) {
	rows := [][]string{
		{"Id", c.Id},
		{"Owner", c.OwnerId},
		{"Status", c.StatusText()},
		{"Config", c.Config()},
		{"Created", c.CreatedAt.Format(time.RFC3339)},
	}
	if c.Suspension != nil {
		rows = append(rows, []string{"Suspended", fmt.Sprintf("%s by %s at %s", c.Suspension.Reason, c.Suspension.Actor, c.Suspension.At.Format(time.RFC3339))})
	}
	if len(c.SharedWith) > 0 {
		rows = append(rows, []string{"Shared with", fmt.Sprint(c.SharedWith)})
	}
	tools.ShowKeyValues(os.Stdout, rows)
}

func showTotals(t types.Totals) {
	fmt.Printf("%d containers (%d running, %d stopped, %d suspended), %dGB RAM / %d CPU / %dGB Disk allocated\n",
		t.Containers, t.Running, t.Stopped, t.Suspended, t.RamGB, t.CpuCores, t.DiskGB)
}

// containerResult prints a container returned by a lifecycle command.
func containerResult(cmd *cobra.Command, msg string, c types.Container) error {
	if wantJSON(cmd) {
		return printJSON(c)
	}
	fmt.Println(msg)
	showContainer(c)
	return nil
}

// withSpinner runs fn behind a spinner unless JSON output is requested.
func withSpinner(cmd *cobra.Command, description string, fn func() error) error {
	if wantJSON(cmd) {
		return fn()
	}
	return tools.Spinner(os.Stderr, description, fn)
}
