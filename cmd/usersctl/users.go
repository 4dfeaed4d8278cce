package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"hydration-user-service/pkg/rpcclient"
)

type usersOptions struct {
	transport string
	addr      string
	output    string
	timeout   time.Duration
	fromPage  bool
	maxAge    time.Duration
}

func newUsersCmd() *cobra.Command {
	opts := &usersOptions{}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users through getUsers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.fromPage && opts.transport != "http" {
				return fmt.Errorf("--from-page needs the http transport")
			}
			client, err := newClient(opts)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var users []rpcclient.User
			if opts.fromPage {
				users, err = usersFromPage(ctx, httpAddr(opts), opts.maxAge, opts.timeout, client)
			} else {
				users, err = client.GetUsers(ctx)
			}
			if err != nil {
				return err
			}
			return printUsers(cmd.OutOrStdout(), users, opts.output)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "http", "transport to use: http or grpc")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "server address (default http://localhost:8080 or localhost:50051)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format: table or json")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().BoolVar(&opts.fromPage, "from-page", false, "read the users embedded in the server-rendered /users page")
	cmd.Flags().DurationVar(&opts.maxAge, "max-age", 0, "with --from-page, call getUsers when the embedded data is older (0 accepts any age)")

	return cmd
}

func newClient(opts *usersOptions) (rpcclient.UsersClient, error) {
	switch opts.transport {
	case "http":
		return rpcclient.NewHTTPClient(httpAddr(opts), opts.timeout), nil
	case "grpc":
		addr := opts.addr
		if addr == "" {
			addr = "localhost:50051"
		}
		return rpcclient.NewGRPCClient(addr)
	default:
		return nil, fmt.Errorf("unknown transport %q (want http or grpc)", opts.transport)
	}
}

func httpAddr(opts *usersOptions) string {
	if opts.addr == "" {
		return "http://localhost:8080"
	}
	return opts.addr
}

func printUsers(w io.Writer, users []rpcclient.User, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	case "table":
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"ID", "Name", "Email", "Created"})
		for _, u := range users {
			table.Append([]string{
				strconv.FormatInt(u.ID, 10),
				u.Name,
				u.Email,
				u.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		table.Render()
		return nil
	default:
		return fmt.Errorf("unknown output %q (want table or json)", format)
	}
}
