package model

// Cafe represents a cafe record. The JSON form uses the column names.
type Cafe struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	MapURL       string  `json:"map_url"`
	ImgURL       string  `json:"img_url"`
	Location     string  `json:"location"`
	Seats        string  `json:"seats"` // free text, e.g. "20-30"
	HasToilet    bool    `json:"has_toilet"`
	HasWifi      bool    `json:"has_wifi"`
	HasSockets   bool    `json:"has_sockets"`
	CanTakeCalls bool    `json:"can_take_calls"`
	CoffeePrice  *string `json:"coffee_price"`
}

// NewCafe represents data for creating a cafe.
// Nil text fields are stored as NULL, which the schema rejects for every
// column except coffee_price.
type NewCafe struct {
	Name         *string `json:"name"`
	MapURL       *string `json:"map_url"`
	ImgURL       *string `json:"img_url"`
	Location     *string `json:"location"`
	Seats        *string `json:"seats"`
	HasToilet    bool    `json:"has_toilet"`
	HasWifi      bool    `json:"has_wifi"`
	HasSockets   bool    `json:"has_sockets"`
	CanTakeCalls bool    `json:"can_take_calls"`
	CoffeePrice  *string `json:"coffee_price"`
}
