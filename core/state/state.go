package state

import (
	"maps"
	"slices"
	"sync/atomic"

	"github.com/dmitrymomot/staterouter/core/params"
	"github.com/dmitrymomot/staterouter/core/resolve"
	"github.com/dmitrymomot/staterouter/core/urlmatcher"
)

// Keys of the values a transition resolves for each level and view.
const (
	StateParamsKey  = "$stateParams"
	TemplateKey     = "$template"
	ControllerKey   = "$$controller"
	ControllerAsKey = "$$controllerAs"
	ResolveAsKey    = "$$resolveAs"
	StateKey        = "$$state"
)

// State is a registered node of the state tree. Its fields are derived from
// Config by the builder stages and do not change after registration.
type State struct {
	Name   string
	Config Config
	Parent *State
	// Data holds the config data merged over the parent's.
	Data map[string]any
	URL  *urlmatcher.Matcher
	// Navigable is the nearest state on the path, itself included, with a URL.
	Navigable *State
	// OwnParams are the URL params of the state plus its config-only params.
	OwnParams *params.Set
	// Params chains OwnParams onto the parent's params.
	Params *params.Set
	// Views are keyed by "name@stateName".
	Views map[string]*View
	// Path lists the ancestors below the root, ending with the state itself.
	Path []*State
	// Includes has an entry for the state and every ancestor.
	Includes map[string]bool
	Abstract bool
	Resolve  resolve.Invocables

	locals atomic.Pointer[Locals]
}

func (s *State) String() string {
	return s.Name
}

// IsRoot reports whether s is the unnamed root of the tree.
func (s *State) IsRoot() bool {
	return s.Parent == nil
}

// Locals returns the resolved locals of an active state, or nil.
func (s *State) Locals() *Locals {
	return s.locals.Load()
}

// Depth is the number of states on the path.
func (s *State) Depth() int {
	return len(s.Path)
}

// Locals holds what a transition resolved for one level of the state path.
type Locals struct {
	parent      *Locals
	resolution  *resolve.Resolution
	globals     resolve.Values
	stateParams params.Values
	views       map[string]resolve.Values
}

func newLocals(parent *Locals) *Locals {
	return &Locals{parent: parent, views: make(map[string]resolve.Values)}
}

func rootLocals() *Locals {
	p := params.Values{}
	return &Locals{
		globals:     resolve.Values{StateParamsKey: p},
		stateParams: p,
		views:       make(map[string]resolve.Values),
	}
}

func (l *Locals) withStateParams(p params.Values) *Locals {
	c := *l
	c.stateParams = p
	c.globals = make(resolve.Values, len(l.globals)+1)
	maps.Copy(c.globals, l.globals)
	c.globals[StateParamsKey] = p
	return &c
}

// Parent returns the locals of the level above, or nil at the root.
func (l *Locals) Parent() *Locals {
	return l.parent
}

// Globals returns the resolved values of the state, inherited ones included.
func (l *Locals) Globals() resolve.Values {
	return l.globals.Clone()
}

// StateParams returns the params visible to the state.
func (l *Locals) StateParams() params.Values {
	return l.stateParams.Clone()
}

// View returns the payload of the named view, searching up the chain.
func (l *Locals) View(name string) (resolve.Values, bool) {
	for cur := l; cur != nil; cur = cur.parent {
		if v, ok := cur.views[name]; ok {
			return v.Clone(), true
		}
	}
	return nil, false
}

// Views lists the view names resolved at this level.
func (l *Locals) Views() []string {
	names := make([]string, 0, len(l.views))
	for name := range l.views {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
