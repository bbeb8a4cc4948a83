// Package notification provides the domain model for multi-channel
// notifications: the static type registry, template rendering, and pluggable
// notification storage.
//
// # Architecture
//
// The package has three cooperating parts:
//
//   - Registry: immutable catalog mapping a notification type id to its
//     category, default priority, default channel set, templates, and
//     optional expiry. Built once at process start from code (DefaultCatalog)
//     or a YAML file (LoadCatalog).
//   - Render: pure template substitution of {{key}} placeholders. Unresolved
//     placeholders are left verbatim so missing-variable bugs are visible in
//     the rendered text instead of producing blank output.
//   - Storage: persistence seam with in-memory, Redis, and Postgres
//     implementations. The delivery pipeline only reads notifications by id;
//     read-state mutation happens through MarkRead/Delete operations.
//
// # Basic Usage
//
//	registry, err := notification.NewRegistry(notification.DefaultCatalog()...)
//	if err != nil {
//	    // invalid catalog - fail at startup
//	}
//
//	typ, err := registry.Resolve("MESSAGE_NEW")
//	if err != nil {
//	    // unknown type id
//	}
//
//	title, body := registry.Render(typ, map[string]any{
//	    "senderName":     "Ayşe",
//	    "messagePreview": "Merhaba",
//	})
//
// # Storage Backends
//
// MemoryStorage suits the single-process deployments the delivery core
// targets. RedisStorage and PostgresStorage implement the same interface for
// deployments that need notifications to survive restarts:
//
//	pool, err := notification.ConnectPostgres(ctx, cfg)
//	if err != nil { ... }
//	if err := notification.Migrate(ctx, pool); err != nil { ... }
//	storage := notification.NewPostgresStorage(pool)
package notification
