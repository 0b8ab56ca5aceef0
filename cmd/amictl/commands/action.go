package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stumpfworks/asterisk-ami/pkg/ami"
	"github.com/stumpfworks/asterisk-ami/pkg/cli"
)

// actionIdleTimeout bounds how long runAction waits for another packet
// (response, or next EventList item) before deciding the action is
// done. actionOverallTimeout is the absolute cap regardless of traffic.
const (
	actionIdleTimeout    = 1 * time.Second
	actionOverallTimeout = 30 * time.Second
)

// ActionCmd opens a short-lived client, submits one ad-hoc action
// (e.g. "amictl action Ping" or "amictl action Originate
// Channel=SIP/100 Exten=200"), prints every response/event packet it
// receives for that action as a table, then closes.
func ActionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action <Action> [key=value ...]",
		Short: "Submit one ad-hoc AMI action and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amiCfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runAction(amiCfg, args[0], args[1:])
		},
	}
	addConnectionFlags(cmd)
	return cmd
}

// parseActionFields turns "key=value" arguments into a packet field
// map, with the action name itself under the "Action" key.
func parseActionFields(action string, kvArgs []string) (map[string]string, error) {
	fields := map[string]string{"Action": action}
	for _, kv := range kvArgs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid key=value argument: %q", kv)
		}
		fields[k] = v
	}
	return fields, nil
}

// runAction submits one action and collects every packet its callback
// receives (the registry keeps a multi-packet EventList action's entry
// alive across the whole list, including the terminating Complete
// event, so a single response packet is not enough to know the action
// is finished). Packets are accumulated until actionIdleTimeout passes
// with nothing new arriving, the connection ends, or
// actionOverallTimeout is hit.
func runAction(amiCfg ami.Config, action string, kvArgs []string) error {
	fields, err := parseActionFields(action, kvArgs)
	if err != nil {
		return err
	}

	client := ami.NewClient(amiCfg)

	packetCh := make(chan map[string]string, 64)
	client.CreateAction(ami.PacketFromMap(fields), func(p *ami.Packet) {
		packetCh <- p.ToMap()
	}, ami.Once)

	connDone := make(chan error, 1)
	go func() { connDone <- client.Connect() }()

	var (
		packets     []map[string]string
		headerOrder []string
		seen        = map[string]bool{}
		connErr     error
		connClosed  bool
	)

	idle := time.NewTimer(actionIdleTimeout)
	defer idle.Stop()
	overall := time.After(actionOverallTimeout)

	collect := func(p map[string]string) {
		packets = append(packets, p)
		for _, k := range sortedKeys(p) {
			if !seen[k] {
				seen[k] = true
				headerOrder = append(headerOrder, k)
			}
		}
	}

loop:
	for {
		select {
		case p := <-packetCh:
			collect(p)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(actionIdleTimeout)
		case connErr = <-connDone:
			connClosed = true
			// Connect returns only after the action callbacks have run,
			// so anything they delivered is already buffered.
			for len(packetCh) > 0 {
				collect(<-packetCh)
			}
			break loop
		case <-idle.C:
			break loop
		case <-overall:
			break loop
		}
	}

	_ = client.Close()
	if !connClosed {
		<-connDone
	}
	if connErr != nil {
		return fmt.Errorf("connect: %w", connErr)
	}

	if len(packets) == 0 {
		cli.PrintWarning("no response received for %s", action)
		return nil
	}
	cli.PacketTable(headerOrder, packets)
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
