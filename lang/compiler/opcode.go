package compiler

import "fmt"

// Increment this to force recompilation of saved bytecode files.
const Version = 0

// Opcode is one instruction mnemonic in the register-based bytecode. Each
// instruction is one opcode byte followed by a fixed number of operand
// bytes determined by the opcode (register indices are u8, jump offsets
// and 16-bit operand forms are little-endian u16, constant indices come
// in 1/2/3-byte variants selected by the compiler from the constant pool
// size - see ast.EncodedWidth).
type Opcode uint8

const ( //nolint:revive
	Nop Opcode = iota

	// moves & consts
	Copy         // Copy dst, src
	SetNull      // SetNull dst
	SetFalse     // SetFalse dst
	SetTrue      // SetTrue dst
	Set0         // Set0 dst           (int 0)
	Set1         // Set1 dst           (int 1)
	SetNumberU8  // SetNumberU8 dst, u8
	LoadFloat    // LoadFloat dst, const8
	LoadFloat16  // LoadFloat16 dst, const16
	LoadFloat24  // LoadFloat24 dst, const24
	LoadInt      // LoadInt dst, const8
	LoadInt16    // LoadInt16 dst, const16
	LoadInt24    // LoadInt24 dst, const24
	LoadString   // LoadString dst, const8
	LoadString16 // LoadString16 dst, const16
	LoadString24 // LoadString24 dst, const24
	LoadNonLocal   // LoadNonLocal dst, const8    (global/predeclared lookup by name)
	LoadNonLocal16 // LoadNonLocal16 dst, const16
	LoadNonLocal24 // LoadNonLocal24 dst, const24

	// containers
	MakeTempTuple    // MakeTempTuple dst, base, n     (n regs starting at base)
	TempTupleToTuple // TempTupleToTuple dst, src
	MakeMap          // MakeMap dst, n                 (n capacity hint, u8)
	MakeMap32        // MakeMap32 dst, n32
	SequenceStart    // SequenceStart dst, n           (n capacity hint, u8)
	SequenceStart32  // SequenceStart32 dst, n32
	SequencePush     // SequencePush seq, val
	SequencePushN    // SequencePushN seq, base, n     (spread n regs from base)
	SequenceToList   // SequenceToList dst, seq
	SequenceToTuple  // SequenceToTuple dst, seq

	// ranges
	Range            // Range dst, lo, hi
	RangeInclusive   // RangeInclusive dst, lo, hi
	RangeTo          // RangeTo dst, hi
	RangeToInclusive // RangeToInclusive dst, hi
	RangeFrom        // RangeFrom dst, lo
	RangeFull        // RangeFull dst

	// iteration
	MakeIterator  // MakeIterator dst, src
	IterNext      // IterNext dst, iter, jumpIfDone(u16)
	IterNextTemp  // IterNextTemp base, iter, jumpIfDone(u16)   (multi-value unpack into base..)
	IterNextQuiet // IterNextQuiet iter, jumpIfDone(u16)        (advance without binding, for discarded loop vars)

	// functions
	SimpleFunction // SimpleFunction dst, const16        (chunk index, no captures)
	Function       // Function dst, const16, flags(u8), captureCount(u8), bodySize(u16)
	Capture        // Capture function, target(u8), source(u8), fromUpvalue(u8 bool)

	// arithmetic
	Negate   // Negate dst, src
	Not      // Not dst, src
	Add      // Add dst, lhs, rhs
	Subtract // Subtract dst, lhs, rhs
	Multiply // Multiply dst, lhs, rhs
	Divide   // Divide dst, lhs, rhs
	Remainder // Remainder dst, lhs, rhs

	// comparison
	Less           // Less dst, lhs, rhs
	LessOrEqual    // LessOrEqual dst, lhs, rhs
	Greater        // Greater dst, lhs, rhs
	GreaterOrEqual // GreaterOrEqual dst, lhs, rhs
	Equal          // Equal dst, lhs, rhs
	NotEqual       // NotEqual dst, lhs, rhs

	// control flow
	Jump         // Jump offset(u16)            forward
	JumpBack     // JumpBack offset(u16)        backward
	JumpIfTrue   // JumpIfTrue cond, offset(u16)
	JumpIfFalse  // JumpIfFalse cond, offset(u16)
	Call         // Call dst, fn, base, argCount(u8)
	CallInstance // CallInstance dst, fn, instance, base, argCount(u8)
	Return       // Return src
	Yield        // Yield src
	Throw        // Throw src

	// structural
	Size      // Size dst, src
	TempIndex // TempIndex dst, tempTuple, index(u8)
	SliceFrom // SliceFrom dst, src, lo
	SliceTo   // SliceTo dst, src, hi
	IsTuple   // IsTuple dst, src
	IsList    // IsList dst, src
	Index     // Index dst, src, key
	SetIndex  // SetIndex target, key, val

	// map & meta
	MapInsert        // MapInsert m, key, val
	MetaInsert       // MetaInsert m, metaKey(u8), val
	MetaInsertNamed  // MetaInsertNamed m, const8, val
	MetaExport       // MetaExport m, metaKey(u8), val
	MetaExportNamed  // MetaExportNamed m, const8, val
	Access           // Access dst, src, const8      (a.name)
	Access16         // Access16 dst, src, const16
	Access24         // Access24 dst, src, const24
	AccessString     // AccessString dst, src, key  (a.(expr))

	// errors
	TryStart // TryStart catchReg, offset(u16)
	TryEnd   // TryEnd -
	Debug    // Debug src
	CheckType // CheckType src, typeTag(u8)
	CheckSize // CheckSize matched, src, n(u8)    (matched &&= len(src) == n)

	// strings
	StringStart   // StringStart dst, n(u8)      (n capacity hint, fragments to come)
	StringStart32 // StringStart32 dst, n32
	StringPush    // StringPush dst, frag
	StringFinish  // StringFinish dst

	// modules
	Import      // Import dst, const16       (module path)
	ValueExport // ValueExport const16, src  (export binding by name)

	OpcodeMax = ValueExport
)

// FuncFlag is one bit of the Function opcode's flags byte.
type FuncFlag uint8

const (
	FuncFlagInstance            FuncFlag = 1 << 0
	FuncFlagVariadic             FuncFlag = 1 << 1
	FuncFlagGenerator            FuncFlag = 1 << 2
	FuncFlagArgIsUnpackedTuple   FuncFlag = 1 << 3
)

var opcodeNames = [...]string{
	Nop: "nop",

	Copy:        "copy",
	SetNull:     "set_null",
	SetFalse:    "set_false",
	SetTrue:     "set_true",
	Set0:        "set_0",
	Set1:        "set_1",
	SetNumberU8: "set_number_u8",

	LoadFloat:   "load_float",
	LoadFloat16: "load_float16",
	LoadFloat24: "load_float24",
	LoadInt:     "load_int",
	LoadInt16:   "load_int16",
	LoadInt24:   "load_int24",
	LoadString:   "load_string",
	LoadString16: "load_string16",
	LoadString24: "load_string24",
	LoadNonLocal:   "load_non_local",
	LoadNonLocal16: "load_non_local16",
	LoadNonLocal24: "load_non_local24",

	MakeTempTuple:    "make_temp_tuple",
	TempTupleToTuple: "temp_tuple_to_tuple",
	MakeMap:          "make_map",
	MakeMap32:        "make_map32",
	SequenceStart:    "sequence_start",
	SequenceStart32:  "sequence_start32",
	SequencePush:     "sequence_push",
	SequencePushN:    "sequence_push_n",
	SequenceToList:   "sequence_to_list",
	SequenceToTuple:  "sequence_to_tuple",

	Range:            "range",
	RangeInclusive:   "range_inclusive",
	RangeTo:          "range_to",
	RangeToInclusive: "range_to_inclusive",
	RangeFrom:        "range_from",
	RangeFull:        "range_full",

	MakeIterator:  "make_iterator",
	IterNext:      "iter_next",
	IterNextTemp:  "iter_next_temp",
	IterNextQuiet: "iter_next_quiet",

	SimpleFunction: "simple_function",
	Function:       "function",
	Capture:        "capture",

	Negate:    "negate",
	Not:       "not",
	Add:       "add",
	Subtract:  "subtract",
	Multiply:  "multiply",
	Divide:    "divide",
	Remainder: "remainder",

	Less:           "less",
	LessOrEqual:    "less_or_equal",
	Greater:        "greater",
	GreaterOrEqual: "greater_or_equal",
	Equal:          "equal",
	NotEqual:       "not_equal",

	Jump:         "jump",
	JumpBack:     "jump_back",
	JumpIfTrue:   "jump_if_true",
	JumpIfFalse:  "jump_if_false",
	Call:         "call",
	CallInstance: "call_instance",
	Return:       "return",
	Yield:        "yield",
	Throw:        "throw",

	Size:      "size",
	TempIndex: "temp_index",
	SliceFrom: "slice_from",
	SliceTo:   "slice_to",
	IsTuple:   "is_tuple",
	IsList:    "is_list",
	Index:     "index",
	SetIndex:  "set_index",

	MapInsert:       "map_insert",
	MetaInsert:      "meta_insert",
	MetaInsertNamed: "meta_insert_named",
	MetaExport:      "meta_export",
	MetaExportNamed: "meta_export_named",
	Access:          "access",
	Access16:        "access16",
	Access24:        "access24",
	AccessString:    "access_string",

	TryStart:  "try_start",
	TryEnd:    "try_end",
	Debug:     "debug",
	CheckType: "check_type",
	CheckSize: "check_size",

	StringStart:   "string_start",
	StringStart32: "string_start32",
	StringPush:    "string_push",
	StringFinish:  "string_finish",

	Import:      "import",
	ValueExport: "value_export",
}

var reverseLookupOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		if s != "" {
			m[s] = Opcode(op)
		}
	}
	return m
}()

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// isJump reports whether op carries a 16-bit jump offset operand.
func isJump(op Opcode) bool {
	switch op {
	case Jump, JumpBack, JumpIfTrue, JumpIfFalse, TryStart, IterNext, IterNextTemp, IterNextQuiet:
		return true
	default:
		return false
	}
}
