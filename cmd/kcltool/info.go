package main

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/spf13/cobra"

	"kartcol/internal/kcl"
)

type infoResult struct {
	Name           string     `json:"name"`
	Prisms         int        `json:"prisms"`
	PrismThickness float32    `json:"prismThickness"`
	SphereRadius   float32    `json:"sphereRadius"`
	AreaMin        [3]float32 `json:"areaMin"`
	BlockShift     uint32     `json:"blockWidthShift"`
	BBoxMin        rl.Vector3 `json:"bboxMin"`
	BBoxMax        rl.Vector3 `json:"bboxMax"`
	Header         kcl.Header `json:"header"`
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [course]",
		Short: "Print the header and bounding box of a terrain file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			name, data, err := a.course(args)
			if err != nil {
				return err
			}

			h := data.Header()
			bbox := data.BBox()
			res := infoResult{
				Name:           name,
				Prisms:         data.PrismCount(),
				PrismThickness: data.PrismThickness(),
				SphereRadius:   data.SphereRadius(),
				AreaMin:        h.AreaMinPos,
				BlockShift:     h.BlockWidthShift,
				BBoxMin:        bbox.Min,
				BBoxMax:        bbox.Max,
				Header:         h,
			}
			if a.asJSON {
				return a.printJSON(res)
			}

			a.printf("%s\n", res.Name)
			a.printf("  prisms:          %d\n", res.Prisms)
			a.printf("  prism thickness: %g\n", res.PrismThickness)
			a.printf("  sphere radius:   %g\n", res.SphereRadius)
			a.printf("  area min:        %v\n", res.AreaMin)
			a.printf("  block shift:     %d\n", res.BlockShift)
			a.printf("  bbox:            %v .. %v\n", res.BBoxMin, res.BBoxMax)
			return nil
		},
	}
}
