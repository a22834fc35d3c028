package decode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/model"
)

// Ledger-style decoding: each instruction resolves by program id
// against the known-program table and a small fixed-offset binary
// reader produces a human-readable action line.

const (
	systemProgramID = "11111111111111111111111111111111"
	tokenProgramID  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	memoProgramID   = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
)

// System program instruction tags (u32 little-endian at offset 0).
const (
	sysCreateAccount = 0
	sysAssign        = 1
	sysTransfer      = 2
)

// Token program instruction tags (u8 at offset 0).
const (
	tokTransfer     = 3
	tokApprove      = 4
	tokSetAuthority = 6
	tokCloseAccount = 9
)

// nativeTransferThreshold is the aggregate native amount (in base
// units of 1e-9) above which a transaction is at least medium risk.
const nativeTransferThreshold = 10_000_000_000

// Instruction is one raw instruction of a ledger-style transaction.
type Instruction struct {
	ProgramID string   `json:"program_id"`
	Accounts  []string `json:"accounts"`
	Data      []byte   `json:"data"`
}

// InstructionAction is the decoded, display-ready form of one
// instruction.
type InstructionAction struct {
	Program  string          `json:"program"`
	Action   string          `json:"action"`
	Warnings []model.Warning `json:"warnings"`
}

// InstructionSetResult aggregates a whole transaction.
type InstructionSetResult struct {
	Actions     []InstructionAction `json:"actions"`
	Warnings    []model.Warning     `json:"warnings"`
	NativeTotal uint64              `json:"native_total"`
	Risk        model.RiskLevel     `json:"risk"`
}

// DecodeInstructions decodes a ledger-style multi-instruction payload
// and computes its aggregate risk.
func (d *Decoder) DecodeInstructions(instructions []Instruction) InstructionSetResult {
	result := InstructionSetResult{
		Actions:  make([]InstructionAction, 0, len(instructions)),
		Warnings: []model.Warning{},
	}

	authorityChanges := 0
	for _, ins := range instructions {
		action := d.decodeInstruction(ins)
		result.Actions = append(result.Actions, action)

		if ins.ProgramID == systemProgramID {
			if tag, ok := readU32(ins.Data, 0); ok && tag == sysTransfer {
				if lamports, ok := readU64(ins.Data, 4); ok {
					result.NativeTotal += lamports
				}
			}
			if tag, ok := readU32(ins.Data, 0); ok && tag == sysAssign {
				authorityChanges++
			}
		}
		if ins.ProgramID == tokenProgramID {
			if tag, ok := readU8(ins.Data, 0); ok && tag == tokSetAuthority {
				authorityChanges++
			}
		}
	}

	// Several ownership changes bundled into one transaction is a
	// wallet-drain pattern regardless of what each one looks like
	// individually.
	if authorityChanges > 1 {
		result.Warnings = append(result.Warnings, model.Warning{
			Level:       model.WarnDanger,
			Code:        "multiple_authority_changes",
			Title:       "Multiple authority changes",
			Description: fmt.Sprintf("This transaction changes account authority %d times.", authorityChanges),
		})
	}

	result.Risk = aggregateRisk(result)
	return result
}

func aggregateRisk(r InstructionSetResult) model.RiskLevel {
	all := make([]model.Warning, 0, len(r.Warnings))
	all = append(all, r.Warnings...)
	for _, a := range r.Actions {
		all = append(all, a.Warnings...)
	}

	risk := riskFromWarnings(all)
	if risk == model.RiskLow && r.NativeTotal > nativeTransferThreshold {
		risk = model.RiskMedium
	}
	return risk
}

func (d *Decoder) decodeInstruction(ins Instruction) InstructionAction {
	name, known := d.tables.Program(ins.ProgramID)
	if !known {
		return InstructionAction{
			Program: ins.ProgramID,
			Action:  fmt.Sprintf("Interact with unknown program %s", shortAddr(ins.ProgramID)),
			Warnings: []model.Warning{{
				Level:       model.WarnCaution,
				Code:        "unknown_program",
				Title:       "Unknown program",
				Description: "This instruction targets a program that is not in the known-program list.",
			}},
		}
	}

	switch ins.ProgramID {
	case systemProgramID:
		return decodeSystemInstruction(name, ins)
	case tokenProgramID:
		return decodeTokenInstruction(name, ins)
	case memoProgramID:
		return InstructionAction{Program: name, Action: fmt.Sprintf("Memo: %q", string(ins.Data)), Warnings: []model.Warning{}}
	default:
		return InstructionAction{Program: name, Action: fmt.Sprintf("Call %s", name), Warnings: []model.Warning{}}
	}
}

func decodeSystemInstruction(program string, ins Instruction) InstructionAction {
	tag, ok := readU32(ins.Data, 0)
	if !ok {
		return malformedInstruction(program)
	}

	switch tag {
	case sysTransfer:
		lamports, ok := readU64(ins.Data, 4)
		if !ok {
			return malformedInstruction(program)
		}
		dest := accountAt(ins, 1)
		return InstructionAction{
			Program:  program,
			Action:   fmt.Sprintf("Transfer %s native units to %s", formatLamports(lamports), shortAddr(dest)),
			Warnings: []model.Warning{},
		}
	case sysAssign:
		return InstructionAction{
			Program: program,
			Action:  "Assign account ownership to another program",
			Warnings: []model.Warning{{
				Level:       model.WarnDanger,
				Code:        "account_reassignment",
				Title:       "Account ownership change",
				Description: "This instruction hands control of an account to another program.",
			}},
		}
	case sysCreateAccount:
		return InstructionAction{Program: program, Action: "Create a new account", Warnings: []model.Warning{}}
	default:
		return InstructionAction{
			Program:  program,
			Action:   fmt.Sprintf("System instruction %d", tag),
			Warnings: []model.Warning{},
		}
	}
}

func decodeTokenInstruction(program string, ins Instruction) InstructionAction {
	tag, ok := readU8(ins.Data, 0)
	if !ok {
		return malformedInstruction(program)
	}

	switch tag {
	case tokTransfer:
		amount, ok := readU64(ins.Data, 1)
		if !ok {
			return malformedInstruction(program)
		}
		dest := accountAt(ins, 1)
		return InstructionAction{
			Program:  program,
			Action:   fmt.Sprintf("Transfer %d tokens to %s", amount, shortAddr(dest)),
			Warnings: []model.Warning{},
		}
	case tokApprove:
		amount, ok := readU64(ins.Data, 1)
		if !ok {
			return malformedInstruction(program)
		}
		delegate := accountAt(ins, 1)
		if amount == math.MaxUint64 {
			return InstructionAction{
				Program: program,
				Action:  fmt.Sprintf("Approve UNLIMITED tokens to %s", shortAddr(delegate)),
				Warnings: []model.Warning{{
					Level:       model.WarnDanger,
					Code:        "unlimited_delegation",
					Title:       "Unlimited delegation",
					Description: "The delegate can move an unlimited amount of this token.",
				}},
			}
		}
		return InstructionAction{
			Program:  program,
			Action:   fmt.Sprintf("Approve %d tokens to %s", amount, shortAddr(delegate)),
			Warnings: []model.Warning{},
		}
	case tokSetAuthority:
		return InstructionAction{
			Program: program,
			Action:  "Change token account authority",
			Warnings: []model.Warning{{
				Level:       model.WarnDanger,
				Code:        "authority_change",
				Title:       "Authority change",
				Description: "This instruction transfers control of a token account.",
			}},
		}
	case tokCloseAccount:
		return InstructionAction{
			Program: program,
			Action:  "Close a token account",
			Warnings: []model.Warning{{
				Level:       model.WarnCaution,
				Code:        "close_account",
				Title:       "Account closure",
				Description: "Closing the account sends its remaining balance elsewhere.",
			}},
		}
	default:
		return InstructionAction{
			Program:  program,
			Action:   fmt.Sprintf("Token instruction %d", tag),
			Warnings: []model.Warning{},
		}
	}
}

func malformedInstruction(program string) InstructionAction {
	return InstructionAction{
		Program: program,
		Action:  "Malformed instruction",
		Warnings: []model.Warning{{
			Level:       model.WarnCaution,
			Code:        "malformed_instruction",
			Title:       "Malformed instruction",
			Description: "The instruction data is shorter than its layout requires.",
		}},
	}
}

func accountAt(ins Instruction, idx int) string {
	if idx < len(ins.Accounts) {
		return ins.Accounts[idx]
	}
	return "unknown"
}

func formatLamports(v uint64) string {
	whole := v / 1_000_000_000
	frac := v % 1_000_000_000
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	return fmt.Sprintf("%d.%09d", whole, frac)
}

func readU8(data []byte, offset int) (uint8, bool) {
	if offset >= len(data) {
		return 0, false
	}
	return data[offset], true
}

func readU32(data []byte, offset int) (uint32, bool) {
	if offset+4 > len(data) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data[offset : offset+4]), true
}

func readU64(data []byte, offset int) (uint64, bool) {
	if offset+8 > len(data) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[offset : offset+8]), true
}
