package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "cdk",
		Usage: "Deploy synthesized cloud-assembly stacks through CloudFormation change sets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "app",
				Usage: "Path to the synthesized cloud assembly JSON",
				Value: "cdk.out/assembly.json",
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "AWS credential profile name (e.g., dev, prod)",
			},
			&cli.StringFlag{
				Name:  "region",
				Usage: "AWS region override for unresolved stack environments",
			},
			&cli.StringFlag{
				Name:  "toolkit-stack-name",
				Usage: "Name of the toolkit stack holding the staging bucket",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress progress output and stack activity",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List the stacks in the assembly",
				Action:    listStacks,
				ArgsUsage: " ",
			},
			{
				Name:      "diff",
				Usage:     "Compare assembly stacks against what is deployed",
				Action:    diffStacks,
				ArgsUsage: "[STACK...]",
			},
			{
				Name:      "deploy",
				Usage:     "Deploy stacks via CloudFormation change sets",
				ArgsUsage: "[STACK...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "role-name",
						Usage: "Execution role CloudFormation assumes (name or full ARN)",
					},
					&cli.StringFlag{
						Name:  "deploy-name",
						Usage: "Deploy under this stack name instead of the assembly name (single stack only)",
					},
				},
				Action: deployStacks,
			},
			{
				Name:      "destroy",
				Usage:     "Delete deployed stacks",
				ArgsUsage: "[STACK...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Skip the confirmation prompt",
					},
					&cli.StringFlag{
						Name:  "role-name",
						Usage: "Execution role CloudFormation assumes (name or full ARN)",
					},
				},
				Action: destroyStacks,
			},
			{
				Name:   "bootstrap",
				Usage:  "Provision the toolkit stack (staging bucket) in the target environment",
				Action: bootstrapEnvironment,
			},
		},
		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
