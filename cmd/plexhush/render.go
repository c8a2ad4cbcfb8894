package main

import (
	"strconv"

	"plexhush/internal/execute"
	"plexhush/internal/plan"
)

func renderPlanTable(actions []plan.Action) string {
	rows := make([][]string, 0, len(actions))
	for _, action := range actions {
		rows = append(rows, []string{
			action.Item.String(),
			string(action.Op),
			string(action.Field),
		})
	}
	return renderTable([]string{"Item", "Action", "Field"}, rows, nil)
}

func renderReportTable(report *execute.Report) string {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
		}
		rows = append(rows, []string{
			res.Action.Item.String(),
			string(res.Action.Op),
			string(res.Action.Field),
			string(res.Status),
			strconv.Itoa(res.Rounds),
			detail,
		})
	}
	return renderTable(
		[]string{"Item", "Action", "Field", "Status", "Rounds", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}
