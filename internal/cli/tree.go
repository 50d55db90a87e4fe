package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/staterouter/core/state"
)

// StateInfo describes a registered state.
type StateInfo struct {
	Name     string   `json:"name"`
	Parent   string   `json:"parent,omitempty"`
	URL      string   `json:"url,omitempty"`
	Abstract bool     `json:"abstract,omitempty"`
	Params   []string `json:"params,omitempty"`
}

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the state tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := rootOpts.newRouter(cmd, "")
			if err != nil {
				return err
			}
			states := r.States()
			infos := make([]StateInfo, len(states))
			for i, s := range states {
				infos[i] = describe(s)
			}
			return rootOpts.printer(cmd.OutOrStdout()).print(infos, func(w io.Writer) {
				writeTree(w, states)
			})
		},
	}
}

func describe(s *state.State) StateInfo {
	info := StateInfo{
		Name:     s.Name,
		Abstract: s.Abstract,
		Params:   s.Params.Keys(),
	}
	if s.Parent != nil {
		info.Parent = s.Parent.Name
	}
	if s.URL != nil && s.Navigable == s {
		info.URL = s.URL.Source
	}
	return info
}

// writeTree prints one line per state, indented by depth, in registration order
// within each parent.
func writeTree(w io.Writer, states []*state.State) {
	children := make(map[*state.State][]*state.State)
	var top []*state.State
	for _, s := range states {
		if s.Parent == nil || s.Parent.IsRoot() {
			top = append(top, s)
			continue
		}
		children[s.Parent] = append(children[s.Parent], s)
	}

	var walk func(s *state.State, depth int)
	walk = func(s *state.State, depth int) {
		info := describe(s)
		line := strings.Repeat("  ", depth) + info.Name
		if info.URL != "" {
			line += "  " + info.URL
		}
		if info.Abstract {
			line += "  (abstract)"
		}
		fmt.Fprintln(w, line)
		for _, c := range children[s] {
			walk(c, depth+1)
		}
	}
	for _, s := range top {
		walk(s, 0)
	}
}
