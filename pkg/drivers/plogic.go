package drivers

import (
	"strconv"
	"strings"

	"github.com/asi-tiger/tiger-go/pkg/address"
	"github.com/asi-tiger/tiger-go/pkg/hub"
	"github.com/asi-tiger/tiger-go/pkg/prop"
	"github.com/asi-tiger/tiger-go/pkg/reply"
)

// PLogic property names.
const (
	PropPointerPosition  = "PointerPosition"
	PropTriggerSource    = "TriggerSource"
	PropCardPreset       = "SetCardPreset"
	PropEditCellType     = "EditCellCellType"
	PropEditCellConfig   = "EditCellConfig"
	PropEditCellInput1   = "EditCellInput1"
	PropEditCellInput2   = "EditCellInput2"
	PropEditCellInput3   = "EditCellInput3"
	PropEditCellInput4   = "EditCellInput4"
	PropEditCellUpdates  = "EditCellUpdateAutomatically"
	PropOutputState      = "PLogicOutputState"
	PropOutputStateUpper = "PLogicOutputStateUpper"
	PropFrontpanelState  = "FrontpanelOutputState"
	PropBackplaneState   = "BackplaneOutputState"
)

// Trigger source values (PM command).
const (
	TriggerInternal    = "0 - internal 4kHz"
	TriggerMicroMirror = "1 - micro-mirror card"
	TriggerTTL5        = "2 - backplane TTL5"
	TriggerTTL7        = "3 - backplane TTL7"
	TriggerFreqDiv     = "4 - frequency divided"
)

// Logic cell types (CCA Y command at the current pointer). Codes 16 and 17
// exist from firmware 3.50.
const (
	CellConstant   = "0 - constant"
	CellDFlop      = "1 - D flop"
	CellLUT2       = "2 - 2-input LUT"
	CellLUT3       = "3 - 3-input LUT"
	CellLUT4       = "4 - 4-input LUT"
	CellAnd2       = "5 - 2-input AND"
	CellOr2        = "6 - 2-input OR"
	CellXor2       = "7 - 2-input XOR"
	CellOneShot    = "8 - one shot"
	CellDelay      = "9 - delay"
	CellAnd4       = "10 - 4-input AND"
	CellOr4        = "11 - 4-input OR"
	CellDFlopSync  = "12 - D flop (synchronous)"
	CellJKFlop     = "13 - JK flop"
	CellOneShotNRT = "14 - one shot (NRT)"
	CellDelayNRT   = "15 - delay (NRT)"
	CellOneShotOr2 = "16 - one shot OR2 (NRT)"
	CellDelayOr2   = "17 - delay OR2 (NRT)"
)

// Physical I/O types, selectable when the pointer sits on an I/O address.
// The wire codes are 0-2; the table offsets them by 100 so one enum serves
// both cells and I/O.
const (
	IOInput      = "input"
	IOOutputOpen = "output (open-drain)"
	IOOutputPush = "output (push-pull)"
	ioTypeOffset = 100
)

// Pointer address ranges. Addresses 1..numCells are logic cells; 33-40 are
// the front-panel BNCs, 41-48 the backplane TTLs. Adding 64 to an address
// reads the inverted value.
const (
	plogicFrontpanelStart = 33
	plogicFrontpanelEnd   = 40
	plogicBackplaneStart  = 41
	plogicBackplaneEnd    = 48
	plogicInvertOffset    = 64
	plogicNumAddresses    = 128
)

// editCellProps are the pointer-dependent properties refreshed after every
// pointer move.
var editCellProps = []string{
	PropEditCellType, PropEditCellConfig,
	PropEditCellInput1, PropEditCellInput2,
	PropEditCellInput3, PropEditCellInput4,
}

// PLogic drives a programmable logic card. Cell editing goes through a
// pointer register: "M" moves the pointer to a cell or I/O address, and the
// CCA/CCB edit commands then operate on whatever the pointer selects.
type PLogic struct {
	*Base
	axis     string
	numCells int

	curPos          int64
	editCellUpdates bool
}

// NewPLogic constructs a programmable logic card from its extended device
// name and runs the one-time hardware interrogation and property
// registration.
func NewPLogic(h *hub.Hub, name string) (*PLogic, error) {
	base, err := NewBase(h, name)
	if err != nil {
		return nil, err
	}
	a, err := address.AxisLetter(name, 0)
	if err != nil {
		return nil, err
	}
	p := &PLogic{Base: base, axis: string(a), numCells: 16, editCellUpdates: true}
	// The cell count rides on the build name, e.g. "PLOGIC_24".
	if i := strings.LastIndexByte(p.info.Name, '_'); i >= 0 {
		if n := intOrZero(p.info.Name[i+1:]); n > 0 {
			p.numCells = n
		}
	}
	if err := p.initialize(); err != nil {
		return nil, err
	}
	return p, nil
}

// AxisLetter returns the card's pointer axis letter.
func (p *PLogic) AxisLetter() string { return p.axis }

// NumCells returns the number of logic cells on the card.
func (p *PLogic) NumCells() int { return p.numCells }

func (p *PLogic) initialize() error {
	if err := p.addCommonProperties(); err != nil {
		return err
	}
	if err := p.addPointerProperty(); err != nil {
		return err
	}
	if err := p.addTriggerSource(); err != nil {
		return err
	}
	if err := p.addCardPreset(); err != nil {
		return err
	}
	if err := p.addEditCellProperties(); err != nil {
		return err
	}
	if err := p.addOutputStates(); err != nil {
		return err
	}
	p.finishInit()
	return nil
}

func (p *PLogic) addPointerProperty() error {
	_, err := p.reg.Add(prop.Metadata{
		Name:     PropPointerPosition,
		Type:     prop.TypeInt,
		Default:  "1",
		Limits:   &prop.Limits{Min: 1, Max: plogicNumAddresses},
		ReadBack: true,
		BeforeGet: func(pr *prop.Property) error {
			pos, err := p.readPointer()
			if err != nil {
				return err
			}
			if err := pr.StoreInt(pos); err != nil {
				return err
			}
			return p.refreshEditCells()
		},
		AfterSet: func(pr *prop.Property) error {
			v, err := pr.Int()
			if err != nil {
				return err
			}
			return p.movePointer(v)
		},
	})
	return err
}

func (p *PLogic) addTriggerSource() error {
	sources := prop.NewEnumTable().
		Add(TriggerInternal, 0).
		Add(TriggerMicroMirror, 1).
		Add(TriggerTTL5, 2).
		Add(TriggerTTL7, 3).
		Add(TriggerFreqDiv, 4)
	bind := &prop.Binding{
		Q:        p.hub,
		Query:    "PM " + p.axis + "?",
		QueryAck: p.axis,
		Pos:      -1,
		Set:      "PM " + p.axis + "=",
	}
	return p.addEnumProp(PropTriggerSource, TriggerInternal, sources, bind)
}

// addCardPreset registers the preset selector. Presets are write-only on
// the controller; the cached value is just the last one applied, -1 until
// then.
func (p *PLogic) addCardPreset() error {
	_, err := p.reg.Add(prop.Metadata{
		Name:    PropCardPreset,
		Type:    prop.TypeInt,
		Default: "-1",
		Limits:  &prop.Limits{Min: -1, Max: 60},
		AfterSet: func(pr *prop.Property) error {
			v, err := pr.Int()
			if err != nil {
				return err
			}
			if v < 0 {
				return nil
			}
			_, err = p.hub.QueryVerify(string(p.addr)+"CCA X="+strconv.FormatInt(v, 10), ":A")
			if err != nil {
				return err
			}
			return p.refreshEditCells()
		},
	})
	return err
}

func (p *PLogic) cellTypeTable() *prop.EnumTable {
	t := prop.NewEnumTable().
		Add(CellConstant, 0).
		Add(CellDFlop, 1).
		Add(CellLUT2, 2).
		Add(CellLUT3, 3).
		Add(CellLUT4, 4).
		Add(CellAnd2, 5).
		Add(CellOr2, 6).
		Add(CellXor2, 7).
		Add(CellOneShot, 8).
		Add(CellDelay, 9).
		Add(CellAnd4, 10).
		Add(CellOr4, 11).
		Add(CellDFlopSync, 12).
		Add(CellJKFlop, 13).
		Add(CellOneShotNRT, 14).
		Add(CellDelayNRT, 15)
	if p.FirmwareAtLeast(3.50) {
		t.Add(CellOneShotOr2, 16).
			Add(CellDelayOr2, 17)
	}
	t.Add(IOInput, ioTypeOffset).
		Add(IOOutputOpen, ioTypeOffset+1).
		Add(IOOutputPush, ioTypeOffset+2)
	return t
}

func (p *PLogic) addEditCellProperties() error {
	if _, err := p.reg.Add(prop.Metadata{
		Name:    PropEditCellType,
		Type:    prop.TypeEnum,
		Default: CellConstant,
		Enum:    p.cellTypeTable(),
		BeforeGet: func(pr *prop.Property) error {
			code, err := p.queryEdit(string(p.addr) + "CCA Y?")
			if err != nil {
				return err
			}
			// I/O addresses answer with the raw 0-2 I/O type.
			if p.pointerOnIO() {
				code += ioTypeOffset
			}
			return pr.StoreCode(code)
		},
		AfterSet: func(pr *prop.Property) error {
			code, err := pr.Code()
			if err != nil {
				return err
			}
			if p.pointerOnIO() {
				if code < ioTypeOffset {
					return prop.ErrInvalidValue
				}
				code -= ioTypeOffset
			} else if code >= ioTypeOffset {
				return prop.ErrInvalidValue
			}
			cmd := string(p.addr) + "CCA Y=" + strconv.FormatInt(code, 10)
			if _, err := p.hub.QueryVerify(cmd, ":A"); err != nil {
				return err
			}
			return p.refreshEditCells()
		},
	}); err != nil {
		return err
	}

	edits := []struct {
		name string
		cmd  string
	}{
		{PropEditCellConfig, "CCA Z"},
		{PropEditCellInput1, "CCB X"},
		{PropEditCellInput2, "CCB Y"},
		{PropEditCellInput3, "CCB Z"},
		{PropEditCellInput4, "CCB F"},
	}
	for _, e := range edits {
		cmd := e.cmd
		if _, err := p.reg.Add(prop.Metadata{
			Name:    e.name,
			Type:    prop.TypeInt,
			Default: "0",
			BeforeGet: func(pr *prop.Property) error {
				v, err := p.queryEdit(string(p.addr) + cmd + "?")
				if err != nil {
					return err
				}
				return pr.StoreInt(v)
			},
			AfterSet: func(pr *prop.Property) error {
				v, err := pr.Int()
				if err != nil {
					return err
				}
				_, err = p.hub.QueryVerify(string(p.addr)+cmd+"="+strconv.FormatInt(v, 10), ":A")
				return err
			},
		}); err != nil {
			return err
		}
	}

	_, err := p.reg.Add(prop.Metadata{
		Name:    PropEditCellUpdates,
		Type:    prop.TypeEnum,
		Default: yes,
		Enum:    prop.NewEnumTable().Add(no, 0).Add(yes, 1),
		AfterSet: func(pr *prop.Property) error {
			p.editCellUpdates = pr.Value() == yes
			return nil
		},
	})
	return err
}

func (p *PLogic) addOutputStates() error {
	states := []struct {
		name   string
		letter string
		gated  bool
	}{
		{PropOutputState, "Z", false},
		{PropOutputStateUpper, "F", true},
		{PropFrontpanelState, "X", false},
		{PropBackplaneState, "Y", false},
	}
	for _, st := range states {
		if st.gated && p.numCells <= 16 {
			continue
		}
		letter := st.letter
		if _, err := p.reg.Add(prop.Metadata{
			Name:       st.name,
			Type:       prop.TypeInt,
			Default:    "0",
			ReadOnly:   true,
			AlwaysRead: true,
			BeforeGet: func(pr *prop.Property) error {
				answer, err := p.hub.QueryVerify(string(p.addr)+"RA "+letter+"?", ":A")
				if err != nil {
					return err
				}
				v, err := reply.IntAfterPosition(answer, 2)
				if err != nil {
					return err
				}
				return pr.StoreInt(v)
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

// readPointer queries the current pointer address.
func (p *PLogic) readPointer() (int64, error) {
	answer, err := p.hub.QueryVerify("W "+p.axis, ":A")
	if err != nil {
		return 0, err
	}
	v, err := reply.IntAfterPosition(answer, 2)
	if err != nil {
		return 0, err
	}
	p.curPos = v
	return v, nil
}

// movePointer repositions the pointer, skipping the command when it is
// already there.
func (p *PLogic) movePointer(pos int64) error {
	if pos == p.curPos {
		return nil
	}
	_, err := p.hub.QueryVerify("M "+p.axis+"="+strconv.FormatInt(pos, 10), ":A")
	if err != nil {
		return err
	}
	p.curPos = pos
	return nil
}

// queryEdit runs a pointer-relative edit query and parses its key=value
// answer.
func (p *PLogic) queryEdit(cmd string) (int64, error) {
	answer, err := p.hub.QueryVerify(cmd, ":A")
	if err != nil {
		return 0, err
	}
	return reply.IntAfterEquals(answer)
}

func (p *PLogic) pointerOnCell() bool {
	return p.curPos >= 1 && p.curPos <= int64(p.numCells)
}

func (p *PLogic) pointerOnIO() bool {
	return p.curPos >= plogicFrontpanelStart && p.curPos <= plogicBackplaneEnd
}

// refreshEditCells forces a fresh read of every pointer-dependent property
// so their cached values describe the cell the pointer now selects. A
// pointer parked outside the editable ranges leaves them alone.
func (p *PLogic) refreshEditCells() error {
	if !p.editCellUpdates {
		return nil
	}
	names := editCellProps
	if p.pointerOnIO() {
		names = []string{PropEditCellType, PropEditCellConfig}
	} else if !p.pointerOnCell() {
		return nil
	}
	for _, name := range names {
		if !p.reg.Has(name) {
			continue
		}
		if _, err := p.reg.Update(name); err != nil {
			return err
		}
	}
	return nil
}
