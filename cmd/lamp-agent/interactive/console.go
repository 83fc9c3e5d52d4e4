// Package interactive provides the command console for an agent running
// on the simulated output driver.
package interactive

import (
	"context"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sigcntrl/lampagent/pkg/agent"
	"github.com/sigcntrl/lampagent/pkg/board"
	"github.com/sigcntrl/lampagent/pkg/heartbeat"
	"github.com/sigcntrl/lampagent/pkg/wire"
)

// Agent is the view of the running agent the console needs.
type Agent interface {
	Phase() agent.Phase
	Stats() heartbeat.Stats
	SessionID() string
	LastMessage() string
	FlickerActive() int
	LocalAddr() net.Addr
	Variant() *board.Variant
}

// Outputs reports simulated channel states.
type Outputs interface {
	States() map[int]bool
}

// Console handles interactive mode for lamp-agent.
type Console struct {
	agent   Agent
	outputs Outputs
	rl      *readline.Instance
	out     io.Writer

	// inject socket and its own sequence counter
	conn net.PacketConn
	seq  uint64
}

// New creates a console reading from the terminal. Attach must be called
// before Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lamp> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Close restores the terminal.
func (c *Console) Close() error {
	if c.rl == nil {
		return nil
	}
	return c.rl.Close()
}

// Attach connects the console to the agent and its simulated outputs.
func (c *Console) Attach(a Agent, outputs Outputs) {
	c.agent = a
	c.outputs = outputs
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use this for log output to avoid interfering with the command line.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop. quit and EOF call cancel.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.closeConn()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
		if !c.Execute(line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the console should
// exit.
func (c *Console) Execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status", "s":
		c.cmdStatus()

	case "stats":
		c.cmdStats()

	case "outputs", "o":
		c.cmdOutputs()

	case "inject", "send":
		c.cmdInject(args)

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Lamp Agent Commands:
  status             - Show agent phase and session
  stats              - Show heartbeat counters
  outputs            - Show channel states per header
  inject <body> [n]  - Send a heartbeat to the agent (optional sequence n)

  help               - Show this help
  quit               - Exit agent

  Bodies: ILED_ON<ch>, ILED_OFF<ch>, HLED_ON<h><p>, ON, OFF, REQ, END`)
}

func (c *Console) cmdStatus() {
	v := c.agent.Variant()
	fmt.Fprintf(c.out, "Phase:        %s\n", c.agent.Phase())
	fmt.Fprintf(c.out, "Variant:      %s (%d channels)\n", v.Name, len(v.Channels))
	fmt.Fprintf(c.out, "Session:      %s\n", c.agent.SessionID())
	fmt.Fprintf(c.out, "Local:        %s\n", c.agent.LocalAddr())
	fmt.Fprintf(c.out, "Echo:         %q\n", c.agent.LastMessage())
	fmt.Fprintf(c.out, "Flickering:   %d\n", c.agent.FlickerActive())
}

func (c *Console) cmdStats() {
	s := c.agent.Stats()
	fmt.Fprintf(c.out, "Sent:            %d (%d failed)\n", s.Sent, s.SendFailures)
	fmt.Fprintf(c.out, "Received:        %d\n", s.Received)
	fmt.Fprintf(c.out, "In order:        %d\n", s.InOrder)
	fmt.Fprintf(c.out, "Lost:            %d\n", s.Lost)
	fmt.Fprintf(c.out, "Restarts:        %d\n", s.Restarts)
	fmt.Fprintf(c.out, "Resend requests: %d\n", s.ResendRequests)
	fmt.Fprintf(c.out, "Framing errors:  %d\n", s.FramingErrors)
}

func (c *Console) cmdOutputs() {
	v := c.agent.Variant()
	states := c.outputs.States()

	for i, h := range v.Headers {
		var b strings.Builder
		for pin := 1; pin <= h.Pins; pin++ {
			ch := v.Channels[h.Start+pin-1]
			mark := "."
			if states[ch] {
				mark = "#"
			}
			fmt.Fprintf(&b, " %s", mark)
		}
		fmt.Fprintf(c.out, "%-3s (header %d):%s\n", h.Name, i+1, b.String())
	}

	var on []int
	for ch, lit := range states {
		if lit {
			on = append(on, ch)
		}
	}
	slices.Sort(on)
	fmt.Fprintf(c.out, "On: %v\n", on)
}

func (c *Console) cmdInject(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: inject <body> [seq]")
		fmt.Fprintln(c.out, "  Example: inject ILED_ON7")
		return
	}
	seq := c.seq
	if len(args) > 1 {
		n, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(c.out, "Invalid sequence: %s\n", args[1])
			return
		}
		seq = n
	}

	if err := c.inject(args[0], seq); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.seq = seq + 1
	fmt.Fprintf(c.out, "Sent %s\n", wire.Encode(args[0], seq))
}

func (c *Console) inject(body string, seq uint64) error {
	target, err := loopbackTarget(c.agent.LocalAddr())
	if err != nil {
		return err
	}
	if c.conn == nil {
		conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
		if err != nil {
			return err
		}
		c.conn = conn
	}
	_, err = c.conn.WriteTo(wire.Encode(body, seq), target)
	return err
}

func (c *Console) closeConn() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// loopbackTarget maps a wildcard bind address to loopback.
func loopbackTarget(addr net.Addr) (*net.UDPAddr, error) {
	u, ok := addr.(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("agent address %v is not UDP", addr)
	}
	target := *u
	if target.IP == nil || target.IP.IsUnspecified() {
		target.IP = net.IPv4(127, 0, 0, 1)
	}
	return &target, nil
}
