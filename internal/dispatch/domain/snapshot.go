package domain

// Snapshot — полный срез трёх коллекций. Это контракт и для персистентности,
// и для import/export между устройствами.
type Snapshot struct {
	Riders    []Rider    `json:"riders"`
	Services  []Service  `json:"services"`
	Customers []Customer `json:"customers"`
}
