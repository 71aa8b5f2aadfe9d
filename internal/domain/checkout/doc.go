// Package checkout contains the Checkout bounded context: the values a
// point-of-sale checkout carries and the port through which it reaches the
// ERP system of record.
//
// Key concepts:
//   - Line / Request / Result: immutable values of one checkout attempt
//   - Target: sum type selecting the order shape (draft sale order or POS session order)
//   - Gateway: port implemented by ERP adapters in the infrastructure layer
//   - RemoteError: the single error kind adapters raise for vendor, transport
//     and business-rule failures
package checkout
