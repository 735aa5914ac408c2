// Package condition adapts navigation and visibility sources to lifebound
// condition gates and provides the binders built on them.
//
// Route patterns use "*" for one path segment and "**" for any number of
// segments:
//
//	router := condition.NewRouter("/dashboard")
//	dash := condition.MustCompilePattern("/dashboard/**")
//	feed := condition.WhileRoute(updates, router, dash)
//
// Visibility binders differ in what happens while hidden: [UntilHidden]
// stops for good, [PauseWhileHidden] drops (or buffers) values, and
// [WhileVisible] unsubscribes and resubscribes.
package condition
