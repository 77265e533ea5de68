package pwrcli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/oremus-labs/ol-power-client/internal/powerapi"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Electricity figures and backend status",
}

var monitorElectricityCmd = protected(&cobra.Command{
	Use:   "electricity",
	Short: "Show electricity figures",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		data, err := client.ElectricityData(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), data, func(tw *tabwriter.Writer) {
			printMonitor(tw, data)
		})
	},
})

var monitorUpdateCmd = protected(&cobra.Command{
	Use:   "update",
	Short: "Set one electricity figure",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		var upd powerapi.ElectricityUpdate
		upd.DataType, _ = cmd.Flags().GetString("type")
		upd.Period, _ = cmd.Flags().GetString("period")
		upd.PeriodDate, _ = cmd.Flags().GetString("date")
		upd.Amount, _ = cmd.Flags().GetFloat64("amount")
		upd.Count, _ = cmd.Flags().GetInt("count")
		if err := client.UpdateElectricityData(cmd.Context(), upd); err != nil {
			return err
		}
		successColor.Fprintf(cmd.OutOrStdout(), "Updated %s %s figure.\n", upd.DataType, upd.Period)
		return nil
	},
})

var monitorStatusCmd = protected(&cobra.Command{
	Use:   "status",
	Short: "Show backend status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := withClient(cmd)
		if err != nil {
			return err
		}
		status, err := client.SystemStatus(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), status, func(tw *tabwriter.Writer) {
			fmt.Fprintf(tw, "Field\tValue\n")
			fmt.Fprintf(tw, "Status\t%s\n", status.Status)
			fmt.Fprintf(tw, "Version\t%s\n", orDash(status.Version))
			fmt.Fprintf(tw, "Users Online\t%d\n", status.UsersOnline)
			fmt.Fprintf(tw, "Timestamp\t%s\n", orDash(status.Timestamp))
		})
	},
})

func printMonitor(tw *tabwriter.Writer, data *powerapi.MonitorData) {
	accentColor.Fprintf(tw, "Date %s, system %s\n", data.CurrentDate, data.SystemStatus)
	fmt.Fprintf(tw, "Class\tDay\tMonth\tYear\n")
	row := func(name string, s powerapi.ElectricityStats) {
		fmt.Fprintf(tw, "%s\t%.2f (%d)\t%.2f (%d)\t%.2f (%d)\n",
			name, s.DayAmount, s.DayCount, s.MonthAmount, s.MonthCount, s.YearAmount, s.YearCount)
	}
	row("resident", data.Resident)
	row("non-resident", data.NonResident)
}

func init() {
	monitorUpdateCmd.Flags().String("type", "", "Customer class: resident|non_resident")
	monitorUpdateCmd.Flags().String("period", "", "Period: day|month|year")
	monitorUpdateCmd.Flags().String("date", time.Now().Format("2006-01-02"), "Period date")
	monitorUpdateCmd.Flags().Float64("amount", 0, "Amount")
	monitorUpdateCmd.Flags().Int("count", 0, "Count")

	monitorCmd.AddCommand(monitorElectricityCmd, monitorUpdateCmd, monitorStatusCmd)
}
