package dto

type EnqueueJobRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

type EnqueueJobResponse struct {
	JobID  uint64 `json:"job_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Status string `json:"status"`
}

type ListRatesRequest struct {
	From   string `form:"from"`
	To     string `form:"to"`
	Limit  int    `form:"limit"`
	Cursor string `form:"cursor"`
}

type ListRatesResponse struct {
	Rates      []RateDTO `json:"rates"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type RateDTO struct {
	ID        int64  `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Rate      string `json:"rate"`
	CreatedAt string `json:"created_at"`
}
