// Package harness runs query scenarios against substitution calculus
// programs.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	program: programs/example.cue
//	queries:
//	  - equal:
//	      left: x
//	      right: a
//	      limit: 1
//	      expect: yes
//	      left_subs: { x: a }
//	  - justify:
//	      context: ya
//	      statement: ya
//	      limit: 2
//	      expect: ok
//	  - justify_all:
//	      expect: ok
//	  - dependencies:
//	      item: f
//	      expect_vars: [x, f]
//
// The program path is relative to the scenario file. Items are named by
// dotted paths from the program root, e.g. nat.zero.
//
// # Query Types
//
//   - equal: compares two items at a limit; expect is yes, no, unknown or
//     needs_higher_limit. left_subs and right_subs, when given, must match
//     the substitutions of a yes exactly (target name to rendered value).
//   - justify: looks for a justification of statement in the scope of
//     context; expect is ok, dead_end, might_not_exist or unresolved.
//   - justify_all: discharges every requirement of the program; expect is
//     ok or unjustified.
//   - dependencies: lists the free variables of item in order.
//
// # Deterministic Testing
//
// Queries are deterministic functions of the program and the limit, so the
// trace of a run is byte-identical across runs. RunWithGolden compares the
// canonical JSON of the trace against testdata/golden/{name}.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/basic.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
