package network

const (
	MsgTypeHeartbeat   = 1
	MsgTypeJoinTown    = 101
	MsgTypeLeaveTown   = 102
	MsgTypeCreateTown  = 103
	MsgTypePlayerMove  = 201
	MsgTypeAreaUpdate  = 202
	MsgTypeTownState   = 301
	MsgTypePlayerMoved = 302
	MsgTypeAreaChanged = 303
	MsgTypeError       = 400
)
