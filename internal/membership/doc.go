// Package membership implements the handshake newly constructed store
// handles use to converge on a single binding set and store-lock identity
// without a designated master: "youngest donor wins." A handle broadcasts
// an initialize_request carrying its creation timestamp; any older handle
// replies with a full snapshot; the newcomer adopts the oldest reply it
// sees. Concurrent newcomers race safely because adoption only ever moves a
// handle's recorded timestamp down, so the process converges on the single
// oldest responder's state regardless of delivery order.
package membership
