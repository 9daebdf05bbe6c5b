package booking

type CreateBookingReq struct {
	PackageID  int64   `json:"package_id" validate:"required,gt=0"`
	PickupDate string  `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	ReturnDate string  `json:"return_date" validate:"required,datetime=2006-01-02"`
	PickupTime string  `json:"pickup_time" validate:"required,datetime=15:04"`
	ReturnTime string  `json:"return_time" validate:"required,datetime=15:04"`
	Location   *string `json:"location" validate:"omitempty,max=255"`
	Notes      *string `json:"notes" validate:"omitempty,max=1000"`
}

type RescheduleReq struct {
	PickupDate string `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	ReturnDate string `json:"return_date" validate:"required,datetime=2006-01-02"`
	PickupTime string `json:"pickup_time" validate:"required,datetime=15:04"`
	ReturnTime string `json:"return_time" validate:"required,datetime=15:04"`
}
