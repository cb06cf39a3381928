package errors

import "errors"

var NotFound = errors.New("Not found")

// Send guards. Both abort the single operation without side effects.
var NoRecipients = errors.New("cannot send a message with no recipients")
var AlreadySent = errors.New("message has already been sent")

// DuplicateRecipient is returned by storage when a recipient copy for the
// (message, recipient) pair already exists. The expansion engine always
// recovers from it by merging.
var DuplicateRecipient = errors.New("recipient copy already exists")
