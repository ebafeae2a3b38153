package pipeline

import (
	"github.com/c360studio/rulekit/target"
)

// Assemble applies the aggregation policy of a to its artifacts. Targets that
// aggregate receive their global artifacts as one consolidated document and
// keep the rest as individual files; other targets keep everything
// individual. Relative order is preserved in both partitions.
func Assemble(a target.Adapter, artifacts []target.Artifact) TargetOutput {
	desc := a.Descriptor()
	out := TargetOutput{Target: desc}

	if !desc.AggregatesGlobals {
		out.Artifacts = artifacts
		return out
	}

	globals, individual := Partition(artifacts)
	out.Artifacts = individual
	out.Aggregate = a.AggregateGlobalRules(globals)
	return out
}

// Partition splits artifacts by IsGlobal, keeping their order.
func Partition(artifacts []target.Artifact) (globals, individual []target.Artifact) {
	for _, artifact := range artifacts {
		if artifact.IsGlobal {
			globals = append(globals, artifact)
		} else {
			individual = append(individual, artifact)
		}
	}
	return globals, individual
}
