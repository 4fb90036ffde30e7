// Package harness runs the engine against scripted game memory and a
// scripted session, for conformance tests and the `tcslink test` command.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	session: memory            # or sqlite
//	memory:                    # initial image
//	  - address: 0x86E0F4
//	    hex: "01 00"
//	granted: ["Jar Jar Binks"] # delivered before the first tick
//	steps:
//	  - tick: 2
//	  - poke:
//	      - address: 0x951BA0
//	        hex: "07 00"
//	  - grant: ["Purple Stud"]
//	  - confirm: ["1-1 Completion"]
//	  - advance: 2s
//	  - queue: "hello"
//	  - fail: "process exited"
//	  - heal: true
//	  - disconnect: true
//	assertions:
//	  - type: reported
//	    checks: ["1-1 Completion"]
//	  - type: memory
//	    region: {address: 0x86E0F4, hex: "03 01"}
//
// Each step sets exactly one field. Only tick steps produce trace events.
//
// # Assertion Types
//
//   - reported: exactly these checks were reported over the whole run
//   - not_reported: none of these checks were reported
//   - unlocked: these chapters were unlocked at some tick
//   - memory: the final image holds these bytes
//   - connected: the engine's final connection state
//   - tick_error: some tick failed with this runtime error code
//
// # Deterministic Testing
//
// Runs use a fake wall clock, sequential connection ids ("conn-1", ...) and
// a fresh in-process session, so traces are byte-identical across runs and
// can be compared against golden files.
package harness
