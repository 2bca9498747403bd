package workflow

import "foreman/internal/store"

// phaseSpec describes one step of the fixed workflow sequence. A phase
// may be guarded on entry or exit by an approval gate, and may run one
// coding-agent command while active.
type phaseSpec struct {
	Number    int
	Name      string
	Command   store.CommandType // empty for gate-only phases
	EntryGate store.GateType    // empty means automatic entry
	ExitGate  store.GateType    // empty means automatic exit
}

// phaseTable is the ordered sequence every project walks. Phases enter
// and complete strictly in this order.
var phaseTable = []phaseSpec{
	{Number: 1, Name: "Vision Document Review", EntryGate: store.GateVisionDoc},
	{Number: 2, Name: "Prime Context", Command: store.CommandPrime},
	{Number: 3, Name: "Plan Feature", Command: store.CommandPlan, EntryGate: store.GatePhaseStart},
	{Number: 4, Name: "Execute Implementation", Command: store.CommandImplement},
	{Number: 5, Name: "Validate & Test", Command: store.CommandValidate, ExitGate: store.GatePhaseComplete},
}

func specFor(number int) (phaseSpec, bool) {
	for _, s := range phaseTable {
		if s.Number == number {
			return s, true
		}
	}
	return phaseSpec{}, false
}

func lastPhaseNumber() int {
	return phaseTable[len(phaseTable)-1].Number
}

// gatePrompt is the question put to the user for each gate type.
func gatePrompt(gateType store.GateType, phaseName string) string {
	switch gateType {
	case store.GateVisionDoc:
		return "Review the vision document. Approve to start the build workflow."
	case store.GatePhaseStart:
		return "Ready to start \"" + phaseName + "\"? Approve to proceed."
	case store.GatePhaseComplete:
		return "\"" + phaseName + "\" finished. Approve the results to close out the workflow."
	case store.GateErrorResolution:
		return "\"" + phaseName + "\" failed. Approve with \"retry\" to run it again, \"skip\" to move on, or reject to abort."
	}
	return "Approval required for \"" + phaseName + "\"."
}
