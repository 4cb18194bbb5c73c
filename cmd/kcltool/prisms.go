package main

import (
	"fmt"
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"kartcol/internal/kcl"
)

type typeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type prismEntry struct {
	Index     uint16        `json:"index"`
	Attribute uint16        `json:"attribute"`
	Type      string        `json:"type"`
	Variant   uint16        `json:"variant"`
	SoftWall  bool          `json:"softWall,omitempty"`
	Normal    rl.Vector3    `json:"normal"`
	Vertices  [3]rl.Vector3 `json:"vertices"`
}

func newPrismsCmd(a *app) *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "prisms [course]",
		Short: "Count prisms per attribute type, or list the prisms of one type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			_, data, err := a.course(args)
			if err != nil {
				return err
			}

			indices := lo.RangeFrom(uint16(1), data.PrismCount())
			if typeName == "" {
				return a.printHistogram(histogram(data, indices))
			}

			ty, ok := kcl.ParseType(typeName)
			if !ok {
				return fmt.Errorf("unknown prism type %q", typeName)
			}
			matching := lo.Filter(indices, func(idx uint16, _ int) bool {
				return kcl.AttributeType(data.Prism(idx).Attribute) == ty
			})
			return a.printPrisms(lo.Map(matching, func(idx uint16, _ int) prismEntry {
				return describePrism(data, idx)
			}))
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "list the prisms of this type, e.g. road or wall")
	return cmd
}

func histogram(data *kcl.Data, indices []uint16) []typeCount {
	counts := lo.CountValuesBy(indices, func(idx uint16) kcl.Type {
		return kcl.AttributeType(data.Prism(idx).Attribute)
	})

	types := lo.Keys(counts)
	slices.Sort(types)
	return lo.Map(types, func(t kcl.Type, _ int) typeCount {
		return typeCount{Type: t.String(), Count: counts[t]}
	})
}

func describePrism(data *kcl.Data, idx uint16) prismEntry {
	p := data.Prism(idx)
	return prismEntry{
		Index:     idx,
		Attribute: p.Attribute,
		Type:      kcl.AttributeType(p.Attribute).String(),
		Variant:   kcl.AttributeVariant(p.Attribute),
		SoftWall:  p.Attribute&kcl.SoftWallMask != 0,
		Normal:    data.Normal(p.FNrmIdx),
		Vertices:  data.Vertices(idx),
	}
}

func (a *app) printHistogram(counts []typeCount) error {
	if a.asJSON {
		return a.printJSON(counts)
	}
	for _, c := range counts {
		a.printf("%-24s %6d\n", c.Type, c.Count)
	}
	return nil
}

func (a *app) printPrisms(prisms []prismEntry) error {
	if a.asJSON {
		return a.printJSON(prisms)
	}
	for _, p := range prisms {
		a.printf("%5d  %#04x  %-16s variant %d  normal %v\n", p.Index, p.Attribute, p.Type, p.Variant, p.Normal)
	}
	return nil
}
