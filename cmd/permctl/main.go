// Command permctl is a small command-line front end over an enforcer: load
// a model and a CSV policy file, then check requests or manage policy and
// role-mapping lines from the shell.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/latticeauth/permengine/internal/logging"
	"github.com/latticeauth/permengine/pkg/enforcer"
	"github.com/latticeauth/permengine/pkg/model"
)

var log = logging.Get("cmd.permctl")

func main() {
	cmd := &cli.Command{
		Name:  "permctl",
		Usage: "inspect and manage a policy model and its policy lines",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Required: true, Usage: "path to the model .conf file"},
			&cli.StringFlag{Name: "policy", Aliases: []string{"p"}, Required: true, Usage: "path to the policy .csv file"},
		},
		Commands: []*cli.Command{
			enforceCommand(),
			policyCommand(),
			roleCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Errorf("main", "%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadEnforcer(cmd *cli.Command) (*enforcer.Enforcer, error) {
	m, err := model.Load(cmd.String("model"))
	if err != nil {
		return nil, err
	}
	return enforcer.NewWithFile(m, cmd.String("policy"))
}

func enforceCommand() *cli.Command {
	return &cli.Command{
		Name:      "enforce",
		Usage:     "check whether a request is allowed",
		ArgsUsage: "<value>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "def", Value: "p", Usage: "policy definition name to enforce against"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := loadEnforcer(cmd)
			if err != nil {
				return err
			}
			values := make([]any, cmd.Args().Len())
			for i := 0; i < cmd.Args().Len(); i++ {
				values[i] = cmd.Args().Get(i)
			}
			ok, err := e.Allow(cmd.String("def"), values...)
			if err != nil {
				return err
			}
			fmt.Println(ok)
			return nil
		},
	}
}

func policyCommand() *cli.Command {
	defFlag := &cli.StringFlag{Name: "def", Value: "p", Usage: "policy definition name"}
	return &cli.Command{
		Name:  "policy",
		Usage: "manage policy lines",
		Commands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "<value>...",
				Flags:     []cli.Flag{defFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := loadEnforcer(cmd)
					if err != nil {
						return err
					}
					if err := e.AddPolicy(cmd.String("def"), argStrings(cmd)...); err != nil {
						return err
					}
					return e.SavePolicies()
				},
			},
			{
				Name:      "remove",
				ArgsUsage: "<value>...",
				Flags:     []cli.Flag{defFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := loadEnforcer(cmd)
					if err != nil {
						return err
					}
					if err := e.RemovePolicy(cmd.String("def"), argStrings(cmd)...); err != nil {
						return err
					}
					return e.SavePolicies()
				},
			},
			{
				Name:  "list",
				Flags: []cli.Flag{defFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := loadEnforcer(cmd)
					if err != nil {
						return err
					}
					lines, err := e.ListPolicies(cmd.String("def"), nil)
					if err != nil {
						return err
					}
					for _, l := range lines {
						fmt.Println(l)
					}
					return nil
				},
			},
			{
				Name: "save",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := loadEnforcer(cmd)
					if err != nil {
						return err
					}
					return e.SavePolicies()
				},
			},
		},
	}
}

func roleCommand() *cli.Command {
	mappingFlag := &cli.StringFlag{Name: "mapping", Value: "g", Usage: "role-mapping relation name"}
	return &cli.Command{
		Name:  "role",
		Usage: "manage role-inheritance lines",
		Commands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "<child> <parent> [domain]",
				Flags:     []cli.Flag{mappingFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := loadEnforcer(cmd)
					if err != nil {
						return err
					}
					if err := e.AddMappingPolicy(cmd.String("mapping"), argStrings(cmd)...); err != nil {
						return err
					}
					return e.SavePolicies()
				},
			},
			{
				Name:      "remove",
				ArgsUsage: "<child> <parent> [domain]",
				Flags:     []cli.Flag{mappingFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := loadEnforcer(cmd)
					if err != nil {
						return err
					}
					if err := e.RemoveMappingPolicy(cmd.String("mapping"), argStrings(cmd)...); err != nil {
						return err
					}
					return e.SavePolicies()
				},
			},
			{
				Name:      "check",
				ArgsUsage: "<child> <parent> [domain]",
				Flags:     []cli.Flag{mappingFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := loadEnforcer(cmd)
					if err != nil {
						return err
					}
					args := argStrings(cmd)
					fn := e.MappingStub(cmd.String("mapping"))
					if fn == nil {
						return fmt.Errorf("unknown role mapping %q", cmd.String("mapping"))
					}
					anyArgs := make([]any, len(args))
					for i, a := range args {
						anyArgs[i] = a
					}
					v, err := fn(anyArgs)
					if err != nil {
						return err
					}
					fmt.Println(v)
					return nil
				},
			},
		},
	}
}

func argStrings(cmd *cli.Command) []string {
	out := make([]string, cmd.Args().Len())
	for i := range out {
		out[i] = cmd.Args().Get(i)
	}
	return out
}
