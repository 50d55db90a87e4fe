// Package location tracks the current URL of a client-side application.
//
// Memory keeps the URL and a history stack in process; it is what tests and
// headless tools use. WebSocket extends Memory with a remote client: the client
// reports navigation with {"type":"navigate","url":"/x"} frames and receives
// {"type":"push","url":"/y"} or {"type":"replace",...} when the application
// changes the URL.
//
// Listeners registered with OnChange run synchronously after each change, in
// registration order. Setting the URL that is already current does not notify.
package location
