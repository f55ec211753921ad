package incubation

import "time"

// Status 是应用的生命周期状态。
type Status string

const (
	// StatusIncubating 表示应用处于孵化窗口内,尚未定论。
	StatusIncubating Status = "INCUBATING"
	// StatusSupported 表示应用达标,协议继续投入资源。
	StatusSupported Status = "SUPPORTED"
	// StatusDropped 表示应用不达标被放弃。终态。
	StatusDropped Status = "DROPPED"
	// StatusHandedToUser 表示应用移交给用户,协议只保留分成。终态。
	StatusHandedToUser Status = "HANDED_TO_USER"
)

// IsTerminal 判断状态是否为终态。终态应用不再被评估。
func (s Status) IsTerminal() bool {
	return s == StatusDropped || s == StatusHandedToUser
}

// App 描述一个已部署的生成应用。
type App struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	// RevenueShareBps 在移交时写入,表示协议保留的分成(基点)。
	RevenueShareBps int       `json:"revenue_share_bps,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Metrics 是一次观测到的应用表现。
type Metrics struct {
	Users      int       `json:"users"`
	RevenueUSD float64   `json:"revenue_usd"`
	ObservedAt time.Time `json:"observed_at"`
}
