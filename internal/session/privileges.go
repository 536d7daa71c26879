package session

// Privilege bits. PrivNormal gates login; the low byte doubles as the
// bancho-privileges value sent to clients and as channel capability masks.
const (
	PrivNormal    int32 = 1 << 0
	PrivModerator int32 = 1 << 1
	PrivSupporter int32 = 1 << 2
	PrivOwner     int32 = 1 << 3
	PrivDeveloper int32 = 1 << 4
)
