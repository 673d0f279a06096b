package flash

// PageSize is the erase granularity of the reference target's flash.
const PageSize = 16 * 1024

// Reference layout: the bootstub occupies the first page, the application
// the three pages above it.
const (
	BootstubBase = 0x08000000
	MainBase     = 0x08004000
)

var (
	MainRegion = Region{
		EraseAddresses: []uint32{0x08004000, 0x08008000, 0x0800c000},
		Base:           MainBase,
	}
	BootstubRegion = Region{
		EraseAddresses: []uint32{BootstubBase},
		Base:           BootstubBase,
	}
)

// ReferencePlan builds the stock two-phase plan: the main application image
// first, then the bootstub below it.
func ReferencePlan(main, bootstub []byte) Plan {
	return Plan{
		Steps: []Step{
			{Name: "main", Region: MainRegion, Image: main},
			{Name: "bootstub", Region: BootstubRegion, Image: bootstub},
		},
	}
}

// PagesFor returns the page-aligned erase addresses covering size bytes
// starting at base.
func PagesFor(base uint32, size int) []uint32 {
	var pages []uint32
	start := base &^ uint32(PageSize-1)
	end := base + uint32(size)
	for addr := start; addr < end; addr += PageSize {
		pages = append(pages, addr)
	}
	return pages
}

// RegionFor builds a Region whose erase set covers size bytes at base.
func RegionFor(base uint32, size int) Region {
	return Region{
		EraseAddresses: PagesFor(base, size),
		Base:           base,
	}
}
