package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopper/host/extruder"
	"gopper/host/gcode"
	"gopper/host/kinematics"
	"gopper/host/mcu"
	"gopper/host/railstepper"
	"gopper/host/reactor"
	"gopper/host/serial"
	"gopper/host/toolhead"
	"gopper/host/trapq"
	"gopper/protocol"
	"gopper/standalone"
	standalonegcode "gopper/standalone/gcode"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 250000, "Baud rate (ignored for USB CDC)")
	verbose = flag.Bool("verbose", false, "Verbose output (accepted; does not change output)")
)

func main() {
	flag.Parse()

	fmt.Println("Gopper Host - Klipper Protocol Host Implementation")
	fmt.Println("===================================================\n")

	// Create MCU instance
	mcuConn := mcu.NewMCU()

	// Connect to MCU
	fmt.Printf("Connecting to MCU on %s...\n", *device)
	serialCfg := serial.DefaultConfig(*device)
	serialCfg.Baud = *baud
	if err := mcuConn.ConnectWithConfig(serialCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mcuConn.Close()

	fmt.Println("Connected successfully!")

	// Retrieve dictionary
	if err := mcuConn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}

	// Print dictionary summary
	mcuConn.PrintDictionary()

	// Build the toolhead stack on top of the now-connected, now-described
	// MCU: a reactor driving print-time pacing, a Cartesian kinematics
	// adapter, a pressure-advance-free extruder, and the gcode interpreter
	// wired to both the move queue and the word-command surface.
	interp, err := buildToolheadStack(mcuConn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to build toolhead: %v\n", err)
		os.Exit(1)
	}

	// Interactive command loop
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]

		switch cmd {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case "dict":
			mcuConn.PrintDictionary()

		case "raw":
			// Print raw dictionary data
			raw := mcuConn.GetDictionaryRaw()
			fmt.Printf("Raw dictionary data (%d bytes):\n%s\n", len(raw), string(raw))

		case "get_uptime":
			if err := sendGetUptime(mcuConn); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "get_clock":
			if err := sendGetClock(mcuConn); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "get_config":
			if err := sendGetConfig(mcuConn); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		case "gcode":
			gline := strings.TrimSpace(strings.TrimPrefix(line, cmd))
			if err := runGCodeLine(interp, gline); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmd)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help           - Show this help message")
	fmt.Println("  dict           - Print dictionary summary")
	fmt.Println("  raw            - Print raw dictionary data")
	fmt.Println("  get_uptime     - Get MCU uptime")
	fmt.Println("  get_clock      - Get MCU clock")
	fmt.Println("  get_config     - Get MCU configuration")
	fmt.Println("  gcode <line>   - Run a line of G-code through the toolhead planner")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println()
}

// buildToolheadStack assembles the reactor, kinematics, extruder and
// toolhead around mcuConn and wraps the result in a gcode interpreter ready
// to accept lines from the "gcode" REPL command.
func buildToolheadStack(mcuConn *mcu.MCU) (*standalonegcode.Interpreter, error) {
	r := reactor.New()
	mcuConn.SyncClock(r.Monotonic())

	// Drive the reactor's timer queue in the background, the same way a
	// live reactor would, so the flushHandler timer actually fires and
	// M400/WaitMoves can return.
	go func() {
		for {
			next := r.RunOnce()
			wait := next - r.Monotonic()
			if wait <= 0 {
				wait = 0.005
			}
			if wait > 0.1 {
				wait = 0.1
			}
			time.Sleep(time.Duration(wait * float64(time.Second)))
		}
	}()

	machineConfig := &standalone.MachineConfig{
		Kinematics: "cartesian",
		Axes: map[string]standalone.AxisConfig{
			"x": {StepsPerMM: 80, MaxVelocity: 300, MaxAccel: 3000, MinPosition: 0, MaxPosition: 300},
			"y": {StepsPerMM: 80, MaxVelocity: 300, MaxAccel: 3000, MinPosition: 0, MaxPosition: 300},
			"z": {StepsPerMM: 400, MaxVelocity: 20, MaxAccel: 200, MinPosition: 0, MaxPosition: 300},
		},
		DefaultVelocity:   300,
		DefaultAccel:      3000,
		JunctionDeviation: 0.02,
	}

	xRail := railstepper.New(railstepper.Config{
		Name: "x", Speed: 50, PositionEndstop: 0, PositiveDir: true,
		PositionMin: 0, PositionMax: 300,
	}, nil)
	yRail := railstepper.New(railstepper.Config{
		Name: "y", Speed: 50, PositionEndstop: 0, PositiveDir: true,
		PositionMin: 0, PositionMax: 300,
	}, nil)
	zRail := railstepper.New(railstepper.Config{
		Name: "z", Speed: 10, PositionEndstop: 0, PositiveDir: true,
		PositionMin: 0, PositionMax: 300,
	}, nil)

	kin, err := kinematics.NewCartesianAdapter(machineConfig, []toolhead.StepperRail{xRail, yRail, zRail})
	if err != nil {
		return nil, fmt.Errorf("build kinematics: %w", err)
	}

	ext := extruder.New("extruder", 50.0)

	thCfg := toolhead.DefaultConfig()
	thCfg.MaxVelocity = 300
	thCfg.MaxAccel = 3000
	thCfg.Kinematics = "cartesian"

	th := toolhead.NewToolHead(thCfg, r, mcuConn, []toolhead.MCUClock{mcuConn}, kin, ext, trapq.New())

	planner := gcode.NewToolheadPlanner(th)

	interp := standalonegcode.NewInterpreter(machineConfig, gcode.NewMoveQueuePlanner(th))
	interp.SetToolheadPlanner(planner)

	return interp, nil
}

// runGCodeLine parses a single line of G-code text and executes it against
// the toolhead-backed interpreter.
func runGCodeLine(interp *standalonegcode.Interpreter, line string) error {
	if line == "" {
		return fmt.Errorf("usage: gcode <g-code line>")
	}
	parser := standalonegcode.NewParser()
	gc, err := parser.ParseLine(line)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if gc == nil {
		return nil
	}
	if err := interp.Execute(gc); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	fmt.Println("ok")
	return nil
}

func sendGetUptime(mcuConn *mcu.MCU) error {
	fmt.Println("Sending get_uptime command...")

	// get_uptime has no arguments, format: ""
	if err := mcuConn.SendCommand("get_uptime", nil); err != nil {
		return fmt.Errorf("failed to send get_uptime: %w", err)
	}

	fmt.Println("Command sent successfully!")
	fmt.Println("(Note: Response handling not yet implemented - check MCU logs)")

	return nil
}

func sendGetClock(mcuConn *mcu.MCU) error {
	fmt.Println("Sending get_clock command...")

	// get_clock has no arguments, format: ""
	if err := mcuConn.SendCommand("get_clock", nil); err != nil {
		return fmt.Errorf("failed to send get_clock: %w", err)
	}

	fmt.Println("Command sent successfully!")
	fmt.Println("Waiting for response...")

	// Wait a bit for response to arrive
	time.Sleep(100 * time.Millisecond)

	// TODO: Implement proper response handling
	fmt.Println("(Note: Response handling not yet implemented - check MCU logs)")

	return nil
}

func sendGetConfig(mcuConn *mcu.MCU) error {
	fmt.Println("Sending get_config command...")

	// get_config has no arguments, format: ""
	if err := mcuConn.SendCommand("get_config", nil); err != nil {
		return fmt.Errorf("failed to send get_config: %w", err)
	}

	fmt.Println("Command sent successfully!")
	fmt.Println("(Note: Response handling not yet implemented - check MCU logs)")

	return nil
}

// DecodeResponse decodes a response message payload
func DecodeResponse(payload []byte) (cmdID uint16, data []byte, err error) {
	// Decode command ID
	cmdIDUint, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to decode command ID: %w", err)
	}

	return uint16(cmdIDUint), payload, nil
}
