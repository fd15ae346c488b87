package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edeas123/aws-terraform-casper/internal/registry"
	"github.com/edeas123/aws-terraform-casper/scanner"
)

var stateGroups bool

// servicesCmd represents the services command
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the supported services and their resource groups",
	Long: `List the supported services and the resource groups scanned for each.

With --state-groups, list every Terraform state resource group casper reads
instead, along with the group its resources are reported under.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if stateGroups {
			printStateGroups(cmd.OutOrStdout(), registry.New())
			return nil
		}
		printServices(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(servicesCmd)
	servicesCmd.Flags().BoolVar(&stateGroups, "state-groups", false, "list the Terraform state resource groups that are read")
}

func printServices(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tRESOURCE GROUPS")
	for _, name := range scanner.Services() {
		groups, _ := scanner.Groups(name)
		fmt.Fprintf(tw, "%s\t%s\n", name, strings.Join(groups, ", "))
	}
	_ = tw.Flush()
}

func printStateGroups(w io.Writer, reg *registry.Registry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE GROUP\tREPORTED AS")
	for _, group := range reg.Groups() {
		h, _ := reg.Lookup(group)
		fmt.Fprintf(tw, "%s\t%s\n", group, h.Tag())
	}
	_ = tw.Flush()
}
