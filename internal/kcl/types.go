package kcl

// Type is the low five bits of a prism attribute.
type Type uint8

const (
	TypeRoad Type = iota
	TypeSlipperyRoad
	TypeWeakOffRoad
	TypeOffRoad
	TypeHeavyOffRoad
	TypeSlipperyRoad2
	TypeBoostPad
	TypeBoostRamp
	TypeJumpPad
	TypeItemRoad
	TypeSolidOOB
	TypeMovingWater
	TypeWall
	TypeInvisibleWall
	TypeItemWall
	TypeWall2
	TypeFallBoundary
	TypeCannonTrigger
	TypeForceRecalculateRoute
	TypeHalfpipeRamp
	TypePlayerWall
	TypeMovingRoad
	TypeStickyRoad
	TypeRoad2
	TypeSoundTrigger
	TypeWeakWall
	TypeEffectTrigger
	TypeItemStateModifier
	TypeHalfpipeInvisibleWall
	TypeRotatingRoad
	TypeSpecialWall
	TypeInvisibleWall2

	TypeCount
)

var typeNames = [TypeCount]string{
	"road", "slippery-road", "weak-off-road", "off-road", "heavy-off-road", "slippery-road-2",
	"boost-pad", "boost-ramp", "jump-pad", "item-road", "solid-oob", "moving-water",
	"wall", "invisible-wall", "item-wall", "wall-2", "fall-boundary", "cannon-trigger",
	"force-recalculate-route", "halfpipe-ramp", "player-wall", "moving-road", "sticky-road",
	"road-2", "sound-trigger", "weak-wall", "effect-trigger", "item-state-modifier",
	"halfpipe-invisible-wall", "rotating-road", "special-wall", "invisible-wall-2",
}

func (t Type) String() string {
	if t < TypeCount {
		return typeNames[t]
	}
	return "unknown"
}

// ParseType is the inverse of String.
func ParseType(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return Type(t), true
		}
	}
	return 0, false
}

// TypeMask has one bit per Type.
type TypeMask uint32

// Types lists the types whose bits are set, in ascending order.
func (m TypeMask) Types() []Type {
	var out []Type
	for t := Type(0); t < TypeCount; t++ {
		if m&t.Bit() != 0 {
			out = append(out, t)
		}
	}
	return out
}

// Bit returns the mask bit for t.
func (t Type) Bit() TypeMask {
	return 1 << (TypeMask(t) & 0x1f)
}

// SoftWallMask marks a wall attribute as non-bouncing.
const SoftWallMask uint16 = 0x8000

// AttributeType extracts the type from a raw attribute.
func AttributeType(attr uint16) Type {
	return Type(attr & 0x1f)
}

// AttributeTypeBit is AttributeType(attr).Bit().
func AttributeTypeBit(attr uint16) TypeMask {
	return AttributeType(attr).Bit()
}

// AttributeVariant extracts the three variant bits that follow the type.
func AttributeVariant(attr uint16) uint16 {
	return (attr >> 5) & 7
}

func bits(ts ...Type) TypeMask {
	var m TypeMask
	for _, t := range ts {
		m |= t.Bit()
	}
	return m
}

const (
	MaskAny  TypeMask = 0xffffffff
	MaskNone TypeMask = 0
)

var (
	MaskDirectional = bits(TypeFallBoundary, TypeSoundTrigger, TypeForceRecalculateRoute,
		TypeEffectTrigger, TypeCannonTrigger)

	MaskSolidSurface = MaskAny &^ bits(TypeFallBoundary, TypeCannonTrigger,
		TypeForceRecalculateRoute, TypeSoundTrigger, TypeWeakWall, TypeEffectTrigger,
		TypeItemStateModifier)

	MaskFloor = bits(TypeRoad, TypeSlipperyRoad, TypeWeakOffRoad, TypeOffRoad, TypeHeavyOffRoad,
		TypeSlipperyRoad2, TypeBoostPad, TypeBoostRamp, TypeJumpPad, TypeItemRoad, TypeSolidOOB,
		TypeMovingWater, TypeHalfpipeRamp, TypeMovingRoad, TypeStickyRoad, TypeRoad2,
		TypeRotatingRoad)

	MaskWall = bits(TypeWall, TypeInvisibleWall, TypeItemWall, TypeWall2, TypePlayerWall,
		TypeHalfpipeInvisibleWall, TypeSpecialWall, TypeInvisibleWall2)

	MaskDriverWall = MaskWall &^ bits(TypeItemWall, TypeHalfpipeInvisibleWall)

	MaskDriverWallNoInvisibleWall  = MaskDriverWall &^ TypeInvisibleWall.Bit()
	MaskDriverWallNoInvisibleWall2 = MaskDriverWall &^ TypeInvisibleWall2.Bit()

	MaskVehicleInteractable = MaskAny &^ bits(TypeItemRoad, TypeItemWall, TypeHalfpipeInvisibleWall)

	MaskVehicleCollideable = MaskVehicleInteractable &^ bits(TypeSoundTrigger, TypeEffectTrigger,
		TypeFallBoundary, TypeCannonTrigger, TypeForceRecalculateRoute)

	MaskNonDirectional = MaskVehicleCollideable &^ bits(TypeItemStateModifier, TypeWeakWall)

	MaskDriverSolidSurface = MaskVehicleCollideable | TypeCannonTrigger.Bit()
)
