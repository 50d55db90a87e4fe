package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/staterouter/core/state"
)

// ErrNoStates is returned for a definitions file without states.
var ErrNoStates = errors.New("no states defined")

// StatesFile is the YAML layout of a definitions file:
//
//	states:
//	  - name: contacts
//	    url: /contacts
//	    abstract: true
//	  - name: contacts.detail
//	    url: /{id:int}
//	    params:
//	      tab: info
type StatesFile struct {
	States []state.Config `yaml:"states"`
}

// LoadStates decodes state definitions from r. Unknown keys are rejected.
func LoadStates(r io.Reader) ([]state.Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f StatesFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoStates
		}
		return nil, fmt.Errorf("decode states: %w", err)
	}
	if len(f.States) == 0 {
		return nil, ErrNoStates
	}
	return f.States, nil
}

// LoadStatesFile reads state definitions from path.
func LoadStatesFile(path string) ([]state.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfgs, err := LoadStates(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfgs, nil
}
