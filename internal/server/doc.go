// Package server runs the short-lived HTTP listener used by the authorization flow.
//
// # Router
//
// [BasicRouter] implements [Router] on [http.ServeMux]. [Middleware] registered with [BasicRouter.Use]
// wraps every handler added afterwards; [LogRequests] and [Recover] are the two the CLI installs.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves [CallbackPath] once. It checks the state parameter, exchanges the authorization
// code for a token and publishes the outcome on [OAuthHandler.Result]. The auth command starts the listener
// on the configured host and port, opens the browser and shuts the listener down after the first result.
package server
