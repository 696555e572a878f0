package orch

// Counts is the aggregate snapshot republished after every mutation.
type Counts struct {
	RoomsCount  int `json:"roomsCount"`
	UsersCount  int `json:"usersCount"`
	OnlineCount int `json:"onlineCount"`
}

func (o *Orchestrator) countsLocked() Counts {
	return Counts{
		RoomsCount:  len(o.rooms.Public()),
		UsersCount:  o.rooms.TotalMembers(),
		OnlineCount: o.registry.ActiveUsers(),
	}
}

func (o *Orchestrator) publishCountsLocked() {
	o.sendAll(EvUpdateCounts, o.countsLocked())
}

func (o *Orchestrator) Counts() Counts {
	o.lock()
	defer o.unlock()
	return o.countsLocked()
}
