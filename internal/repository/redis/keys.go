package redis

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "inngo:v1"

func KeyCategory(id uuid.UUID) string {
	return fmt.Sprintf("%s:category:%s", ns, id)
}

func KeyCategoryRooms(id uuid.UUID) string {
	return fmt.Sprintf("%s:category:%s:rooms", ns, id)
}

func KeyCategoryStats() string {
	return ns + ":stats:categories"
}

func KeyRoomStats() string {
	return ns + ":stats:rooms"
}

func KeyBookingStats() string {
	return ns + ":stats:bookings"
}

func KeySeatPools() string {
	return ns + ":seats"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func ChannelInventoryChanged() string {
	return ns + ":inventory:changed"
}
