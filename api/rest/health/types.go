package health

type Response struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
	Rooms   int    `json:"rooms"`
}

type PingResponse struct {
	Message string `json:"message"`
}

// reports the number of live document rooms
type RoomCounter interface {
	RoomCount() int
}
