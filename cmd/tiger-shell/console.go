package main

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"

	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/profile"
)

const consoleHelp = `Commands:
  devices                      list initialized peripherals
  props <device>               list a peripheral's properties with values
  get <device> <prop>          read a property (respects refresh policy)
  set <device> <prop> <value>  write a property
  update <device> <prop>       force a fresh read from the controller
  save <file>                  snapshot all property values to a profile
  restore <file>               reapply a saved profile
  raw <command>                send a raw serial command
  help                         show this help
  exit                         quit

Any line that is not a built-in is sent to the controller as-is.
Multi-word property values go in the last argument position unquoted.
`

// console is the interactive command loop.
type console struct {
	hub     *hub.Hub
	devices map[string]profile.Peripheral
	order   []string
	rl      *readline.Instance
}

func newConsole(h *hub.Hub, devices []profile.Peripheral) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tiger> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &console{
		hub:     h,
		devices: make(map[string]profile.Peripheral, len(devices)),
		rl:      rl,
	}
	for _, d := range devices {
		c.devices[d.Name()] = d
		c.order = append(c.order, d.Name())
	}
	return c, nil
}

func (c *console) run() error {
	defer c.rl.Close()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return nil
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		switch parts[0] {
		case "help", "?":
			fmt.Fprint(c.rl.Stdout(), consoleHelp)
		case "exit", "quit":
			return nil
		case "devices":
			c.cmdDevices()
		case "props":
			c.cmdProps(parts[1:])
		case "get":
			c.cmdGet(parts[1:])
		case "set":
			c.cmdSet(parts[1:])
		case "update":
			c.cmdUpdate(parts[1:])
		case "save":
			c.cmdSave(parts[1:])
		case "restore":
			c.cmdRestore(parts[1:])
		case "raw":
			c.cmdRaw(strings.TrimSpace(strings.TrimPrefix(input, "raw")))
		default:
			c.cmdRaw(input)
		}
	}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.rl.Stdout(), format, args...)
}

func (c *console) errorf(format string, args ...any) {
	fmt.Fprintf(c.rl.Stderr(), "error: "+format+"\n", args...)
}

// lookup resolves a device argument, accepting either the full extended
// name or a unique prefix of it.
func (c *console) lookup(arg string) (profile.Peripheral, bool) {
	if d, ok := c.devices[arg]; ok {
		return d, true
	}
	var match profile.Peripheral
	for name, d := range c.devices {
		if strings.HasPrefix(name, arg) {
			if match != nil {
				c.errorf("ambiguous device %q", arg)
				return nil, false
			}
			match = d
		}
	}
	if match == nil {
		c.errorf("unknown device %q", arg)
		return nil, false
	}
	return match, true
}

func (c *console) cmdDevices() {
	if len(c.order) == 0 {
		c.printf("no peripherals initialized (start with -config)\n")
		return
	}
	for _, name := range c.order {
		c.printf("%s\n", name)
	}
}

func (c *console) cmdProps(args []string) {
	if len(args) != 1 {
		c.errorf("usage: props <device>")
		return
	}
	d, ok := c.lookup(args[0])
	if !ok {
		return
	}
	reg := d.Props()
	for _, name := range reg.Names() {
		v, err := reg.Cached(name)
		if err != nil {
			c.errorf("%s: %v", name, err)
			continue
		}
		p, _ := reg.Lookup(name)
		ro := ""
		if p != nil && p.ReadOnly() {
			ro = " (read-only)"
		}
		c.printf("%-32s = %s%s\n", name, v, ro)
	}
}

func (c *console) cmdGet(args []string) {
	if len(args) != 2 {
		c.errorf("usage: get <device> <prop>")
		return
	}
	d, ok := c.lookup(args[0])
	if !ok {
		return
	}
	v, err := d.Props().Get(args[1])
	if err != nil {
		c.errorf("%v", err)
		return
	}
	c.printf("%s\n", v)
}

func (c *console) cmdSet(args []string) {
	if len(args) < 3 {
		c.errorf("usage: set <device> <prop> <value>")
		return
	}
	d, ok := c.lookup(args[0])
	if !ok {
		return
	}
	value := strings.Join(args[2:], " ")
	if err := d.Props().Set(args[1], value); err != nil {
		c.errorf("%v", err)
		return
	}
	v, _ := d.Props().Cached(args[1])
	c.printf("%s = %s\n", args[1], v)
}

func (c *console) cmdUpdate(args []string) {
	if len(args) != 2 {
		c.errorf("usage: update <device> <prop>")
		return
	}
	d, ok := c.lookup(args[0])
	if !ok {
		return
	}
	v, err := d.Props().Update(args[1])
	if err != nil {
		c.errorf("%v", err)
		return
	}
	c.printf("%s\n", v)
}

func (c *console) cmdSave(args []string) {
	if len(args) != 1 {
		c.errorf("usage: save <file>")
		return
	}
	devices := make([]profile.Peripheral, 0, len(c.order))
	for _, name := range c.order {
		devices = append(devices, c.devices[name])
	}
	p, err := profile.Capture(devices...)
	if err != nil {
		c.errorf("%v", err)
		return
	}
	if err := profile.NewStore(args[0]).Save(p); err != nil {
		c.errorf("%v", err)
		return
	}
	c.printf("saved %d peripherals to %s\n", len(p.Peripherals), args[0])
}

func (c *console) cmdRestore(args []string) {
	if len(args) != 1 {
		c.errorf("usage: restore <file>")
		return
	}
	p, err := profile.NewStore(args[0]).Load()
	if err != nil {
		c.errorf("%v", err)
		return
	}
	if p == nil {
		c.errorf("no such profile: %s", args[0])
		return
	}
	devices := make([]profile.Peripheral, 0, len(c.order))
	for _, name := range c.order {
		devices = append(devices, c.devices[name])
	}
	if err := profile.Apply(p, devices...); err != nil {
		c.errorf("%v", err)
		return
	}
	c.printf("restored %s\n", args[0])
}

func (c *console) cmdRaw(cmd string) {
	if cmd == "" {
		c.errorf("empty command")
		return
	}
	answer, err := c.hub.Command(cmd)
	if err != nil {
		c.errorf("%v", err)
		return
	}
	c.printf("%s\n", answer)
}
