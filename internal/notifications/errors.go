package notifications

import "errors"

// ErrNotificationNotFound is returned when the notification does not exist or
// belongs to another user.
var ErrNotificationNotFound = errors.New("notifications: notification not found")
