package powerapi

import (
	"context"
	"strings"

	"github.com/oremus-labs/ol-power-client/internal/apierr"
)

// Services lists the service types offered at the service hall.
func (c *Client) Services(ctx context.Context) ([]ServiceType, error) {
	var out []ServiceType
	if err := c.p.Get(ctx, "/api/services", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceByID fetches one service type.
func (c *Client) ServiceByID(ctx context.Context, id string) (*ServiceType, error) {
	sid, err := parseID("serviceId", id)
	if err != nil {
		return nil, err
	}
	var out ServiceType
	if err := c.p.Get(ctx, "/api/services/"+sid, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ServiceMonitor returns the monitoring view of the services endpoint.
func (c *Client) ServiceMonitor(ctx context.Context) (*MonitorData, error) {
	var out MonitorData
	if err := c.p.Get(ctx, "/api/services/monitor", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ElectricityData returns the electricity dashboard figures.
func (c *Client) ElectricityData(ctx context.Context) (*MonitorData, error) {
	var out MonitorData
	if err := c.p.Get(ctx, "/api/monitor/electricity", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateElectricityData writes one figure. All fields are required and zero
// amounts or counts count as missing.
func (c *Client) UpdateElectricityData(ctx context.Context, upd ElectricityUpdate) error {
	var missing []string
	if strings.TrimSpace(upd.DataType) == "" {
		missing = append(missing, "data_type")
	}
	if strings.TrimSpace(upd.Period) == "" {
		missing = append(missing, "period")
	}
	if strings.TrimSpace(upd.PeriodDate) == "" {
		missing = append(missing, "period_date")
	}
	if upd.Amount == 0 {
		missing = append(missing, "amount")
	}
	if upd.Count == 0 {
		missing = append(missing, "count")
	}
	if len(missing) > 0 {
		return apierr.Invalid("", "missing required fields: "+strings.Join(missing, ", "))
	}
	return c.p.Post(ctx, "/api/monitor/update-electricity", upd, nil)
}

// SystemStatus returns the backend status summary.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var out SystemStatus
	if err := c.p.Get(ctx, "/api/monitor/system-status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
