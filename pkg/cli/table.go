package cli

import (
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
)

// Table renders a bordered table to stdout.
func Table(headers []string, rows [][]string) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetBorder(true)
	table.SetHeaderLine(true)
	table.SetRowLine(false)
	table.SetCenterSeparator("┼")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, row := range rows {
		table.Append(row)
	}

	table.Render()
}

// KeyValueTable renders a sorted key/value table, used for amictl
// version's report.
func KeyValueTable(data map[string]string) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, data[k]})
	}
	Table([]string{"Header", "Value"}, rows)
}

// PacketTable renders a sequence of response/event packets (e.g. the
// items of an EventList) as one table, one row per packet, with the
// columns given by headerOrder (amictl action passes the union of
// every packet's keys in first-seen order).
func PacketTable(headerOrder []string, packets []map[string]string) {
	if len(packets) == 0 {
		Table(headerOrder, nil)
		return
	}
	rows := make([][]string, 0, len(packets))
	for _, p := range packets {
		row := make([]string, len(headerOrder))
		for i, h := range headerOrder {
			row[i] = p[h]
		}
		rows = append(rows, row)
	}
	Table(headerOrder, rows)
}
