// Package git runs configured git operations against a repository handle.
//
// A Repository starts empty (New) or wraps an existing repository (Open).
// Clone and Init populate an empty handle; every other operation needs a
// populated one and fails with a NotFound error otherwise.
//
// Key Components:
//
// Repository: the handle. It carries the credential provider and the
// owner-validation and certificate-check policy, and passes them into
// every operation it runs.
//
// CloneConfig, CheckoutConfig, InitConfig, AddConfig, CommitConfig,
// PushConfig, FetchConfig, PullConfig, RemoteConfig, RestoreConfig:
// option snapshots for the operation of the same name.
//
// Example Usage:
//
//	repo := git.New()
//	repo.SetUserPass("user", "token")
//
//	cfg := git.NewCloneConfig("https://github.com/org/repo.git", "/src")
//	updates := cfg.UpdateChannel()
//	go progress.Drain(progress.NewConsoleTracker(os.Stdout), updates)
//
//	if err := repo.Clone(ctx, cfg); err != nil {
//	    log.Fatalf("Failed to clone repository: %v", err)
//	}
//	if err := repo.Checkout(ctx, git.CheckoutConfig{Spec: "v1.2.0"}); err != nil {
//	    log.Fatalf("Failed to checkout: %v", err)
//	}
//
// Error Handling:
//
// Errors are *errors.OperationError values. Use errors.IsNotFound,
// IsConflict, IsTransport and IsWorkingTreeConflict from the internal
// errors package to branch on them.
//
// Thread Safety:
//
// A Repository is not safe for concurrent use. Progress delivery is: the
// update channel may be read from any goroutine while an operation runs.
package git
