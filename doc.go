// Package notifykit is the notification delivery core: it turns application
// events into rendered notifications and carries them to users over push,
// email, SMS and in-app channels.
//
// The pipeline runs in four stages. A Notify call resolves the event
// against the type registry and renders the title and body templates. The
// user's preferences then decide which channels the notification may use:
// category overrides, channel defaults, quiet hours and the urgent bypass
// all apply here, before anything is queued. Each surviving channel gets
// one delivery item in the queue, de-duplicated per (notification, channel)
// pair. A single drain loop wakes on a fixed tick, claims due items in
// priority order and dispatches them through per-channel senders; failures
// are classified and either retried with exponential backoff or parked in
// the dead-letter view once the attempt budget is spent.
//
// Basic usage:
//
//	registry, _ := notification.NewRegistry(notification.DefaultCatalog()...)
//	storage := notification.NewMemoryStorage()
//	prefs := preferences.NewMemoryStore()
//	dispatcher := dispatch.NewDispatcher(
//		dispatch.WithSender(notification.ChannelInApp, hub),
//	)
//
//	svc, _ := notifykit.New(registry, storage, prefs, dispatcher)
//	_ = svc.Start(ctx)
//	defer svc.Stop()
//
//	svc.Notify(ctx, userID, "MESSAGE_NEW", map[string]any{
//		"senderName":     "Ayşe",
//		"messagePreview": "Merhaba",
//	})
//
// Unread counts and the push permission lifecycle live on the badge
// tracker, reachable through Service.Badges.
package notifykit
