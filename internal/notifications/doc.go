// Package notifications delivers render lifecycle events via ntfy.
//
// The default implementation posts to the topic configured in config.toml
// and degrades to a no-op when no topic is set. Render and error events
// honor the notifications.renders and notifications.errors toggles; the
// test event always sends so connectivity can be verified with
// `szhimatar notify test`.
//
// RenderNotifier bridges the Service onto the render manager's notifier
// hooks; everything else depends only on the Service interface.
package notifications
