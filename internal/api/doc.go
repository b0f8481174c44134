// Package api provides the hub-facing HTTP server.
//
// The SmartThings Edge driver polls POST /devices for the device list
// (supplying credentials in the body), posts commands to
// POST /{deviceID}/control, and operators can eyeball GET /status. The JSON
// shapes on the first two routes are a compatibility contract with the hub
// driver and must not change.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
