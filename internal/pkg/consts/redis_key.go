package consts

const (
	// RoomKeyPrefix 房间频道前缀，完整频道形如 im:room:conv:<id> / im:room:user:<id>
	RoomKeyPrefix     = "im:room:"
	RoomPattern       = "im:room:*"
	PresenceChannel   = "im:presence"
	UserLastSeenKey   = "im:lastseen:"
	TokenRevokePrefix = "auth:revoked:"
)
