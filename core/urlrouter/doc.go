// Package urlrouter maps location changes to rules.
//
// Rules are evaluated in registration order against the current location;
// the first rule that reports the location as handled stops the search. When
// no rule handles it, the otherwise rule runs.
//
//	r := urlrouter.New(loc, inj, factory)
//	_ = r.When(urlrouter.Pattern("/old/:id"), urlrouter.Redirect("/new/:id"))
//	_ = r.When(urlrouter.Regexp(regexp.MustCompile(`^/legacy/(\d+)$`)), urlrouter.Redirect("/items/$1"))
//	_ = r.Otherwise(urlrouter.Redirect("/"))
//	stop := r.Listen(ctx)
//	defer stop()
//	r.Sync(ctx)
//
// Push writes a formatted URL to the location. With AvoidResync the change
// notification caused by the push is not evaluated again, so a transition
// that updates the URL does not trigger itself. Href renders displayable links
// in hash or HTML5 mode.
package urlrouter
