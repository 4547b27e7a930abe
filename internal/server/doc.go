// Package server hosts the Fiber HTTP service and request middleware chain
// that wires the /weather endpoint into the weather service. The package
// bootstraps Fiber, attaches recover and request-ID middlewares, translates
// service errors into the HTTP taxonomy (400/502/503), and exposes router
// constructors that main and the routes package reuse. Keep exports narrow
// and accept explicit dependencies so fakes can be injected in tests.
package server
