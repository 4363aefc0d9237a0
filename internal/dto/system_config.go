package dto

// ── 系统配置模块 DTO ──

// UpdateSystemConfigRequest 更新系统配置请求
type UpdateSystemConfigRequest struct {
	DefaultToleranceMinutes   *int  `json:"default_tolerance_minutes"    binding:"omitempty,min=0,max=240"`
	EarlyArrivalMarginMinutes *int  `json:"early_arrival_margin_minutes" binding:"omitempty,min=0,max=240"`
	ExcusedCountsAsAttended   *bool `json:"excused_counts_as_attended"`
}

// SystemConfigResponse 系统配置响应
type SystemConfigResponse struct {
	DefaultToleranceMinutes   int    `json:"default_tolerance_minutes"`
	EarlyArrivalMarginMinutes int    `json:"early_arrival_margin_minutes"`
	ExcusedCountsAsAttended   bool   `json:"excused_counts_as_attended"`
	UpdatedAt                 string `json:"updated_at"`
}
