package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/cropform/internal/chain"
	"github.com/jask/cropform/internal/forms"
	"github.com/jask/cropform/internal/lookup"
)

func (a *app) formsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List the configured forms and their stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := forms.Load(a.cfg.Forms.Path)
			if err != nil {
				return err
			}
			printForms(cmd.OutOrStdout(), defs)
			return nil
		},
	}
}

func printForms(out io.Writer, defs []forms.Form) {
	for i, f := range defs {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s  %s\n", f.Name, f.DisplayTitle())
		for _, st := range f.Stages {
			source := st.Endpoint
			if len(st.Options) > 0 {
				source = "[" + strings.Join(st.Options, ", ") + "]"
			}
			line := fmt.Sprintf("  %-10s %s", st.Key, source)
			if len(st.DependsOn) > 0 {
				line += "  <- " + strings.Join(st.DependsOn, ", ")
			}
			if st.Required {
				line += "  (required)"
			}
			fmt.Fprintln(out, line)
		}
	}
}

// buildChain loads the named form and binds it to the configured backend.
func (a *app) buildChain(name string) (forms.Form, *chain.Chain, error) {
	defs, err := forms.Load(a.cfg.Forms.Path)
	if err != nil {
		return forms.Form{}, nil, err
	}
	names := make([]chain.Option, 0, len(defs))
	for _, d := range defs {
		names = append(names, chain.Option{Value: d.Name, Label: d.Name})
	}
	resolved, err := forms.Resolve(name, names)
	if err != nil {
		return forms.Form{}, nil, fmt.Errorf("unknown form: %w", err)
	}
	form, _ := forms.Find(defs, resolved)
	client, err := lookup.NewClient(a.cfg.Backend.BaseURL, lookup.WithLogger(a.logger))
	if err != nil {
		return forms.Form{}, nil, err
	}
	stages, err := form.Bind(client)
	if err != nil {
		return forms.Form{}, nil, err
	}
	c, err := chain.New(stages, chain.WithLogger(a.logger))
	if err != nil {
		return forms.Form{}, nil, fmt.Errorf("form %s: %w", form.Name, err)
	}
	return form, c, nil
}
