// Package event provides a synchronous, typed observer bus.
//
// Handlers subscribe by payload type name and are invoked in subscription order
// on the publishing goroutine. Payloads that embed Cancelable can be prevented
// by any handler; Publish reports the outcome to the publisher.
//
//	bus := event.NewBus(event.WithBusLogger(logger))
//	unsubscribe, _ := bus.Subscribe(event.NewHandlerFunc(
//		func(ctx context.Context, evt *state.StateChangeStart) error {
//			if !loggedIn(ctx) {
//				evt.Prevent()
//			}
//			return nil
//		},
//	))
//	defer unsubscribe()
//
// Handler errors and panics are logged, joined and returned from Publish; they
// never interrupt delivery to the remaining handlers.
//
// Decorators wrap handler functions middleware-style:
//
//	fn := event.ApplyDecorators(handle, event.WithLogging[*state.StateChangeError](logger))
package event
