// Package lifecycle manages versioned response partitions.
//
// Every deployed version owns three partitions named deterministically:
//
//	static-v{version}    core assets, written only at install time
//	dynamic-v{version}   API responses and other assets, written per request
//	images-v{version}    image responses
//
// Install pre-caches the manifest into the static partition. Failures are
// logged and reported, never fatal.
//
// Activate deletes every partition that does not belong to the current
// version, so partitions never accumulate across upgrades.
//
// Controller sequences both steps and implements the skip-waiting control
// hook:
//
//	ctrl := lifecycle.NewController(lifecycle.ControllerConfig{
//		Store:   store,
//		Fetcher: http.DefaultClient,
//		Origin:  "http://localhost:8080",
//		Version: "1",
//	})
//	report, _ := ctrl.Install(ctx)
//	deleted, err := ctrl.SkipWaiting(ctx)
package lifecycle
