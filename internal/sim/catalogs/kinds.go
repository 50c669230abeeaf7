package catalogs

// ItemKind identifies a material or product. Values match items.json ids.
type ItemKind string

const (
	ItemOre           ItemKind = "ORE"
	ItemPlate         ItemKind = "PLATE"
	ItemGear          ItemKind = "GEAR"
	ItemScience       ItemKind = "SCIENCE"
	ItemCopperOre     ItemKind = "COPPER_ORE"
	ItemCopperPlate   ItemKind = "COPPER_PLATE"
	ItemCoal          ItemKind = "COAL"
	ItemGoldOre       ItemKind = "GOLD_ORE"
	ItemGoldPlate     ItemKind = "GOLD_PLATE"
	ItemTitaniumOre   ItemKind = "TITANIUM_ORE"
	ItemTitaniumPlate ItemKind = "TITANIUM_PLATE"
	ItemUraniumOre    ItemKind = "URANIUM_ORE"
	ItemUraniumPlate  ItemKind = "URANIUM_PLATE"
	ItemCopperWire    ItemKind = "COPPER_WIRE"
	ItemCircuit       ItemKind = "CIRCUIT"
	ItemSteel         ItemKind = "STEEL"
	ItemRedScience    ItemKind = "RED_SCIENCE"
	ItemGreenScience  ItemKind = "GREEN_SCIENCE"
)

// BuildingKind identifies a placeable building. The empty kind is an empty tile.
type BuildingKind string

const (
	KindNone             BuildingKind = ""
	KindConveyor         BuildingKind = "CONVEYOR"
	KindFastConveyor     BuildingKind = "FAST_CONVEYOR"
	KindSplitter         BuildingKind = "SPLITTER"
	KindMerger           BuildingKind = "MERGER"
	KindRouter           BuildingKind = "ROUTER"
	KindMiner            BuildingKind = "MINER"
	KindAdvancedMiner    BuildingKind = "ADVANCED_MINER"
	KindSmelter          BuildingKind = "SMELTER"
	KindAssembler        BuildingKind = "ASSEMBLER"
	KindAssemblerMk2     BuildingKind = "ASSEMBLER_MK2"
	KindChemicalPlant    BuildingKind = "CHEMICAL_PLANT"
	KindLab              BuildingKind = "LAB"
	KindStorage          BuildingKind = "STORAGE"
	KindGenerator        BuildingKind = "GENERATOR"
	KindCoalGenerator    BuildingKind = "COAL_GENERATOR"
	KindUndergroundEntry BuildingKind = "UNDERGROUND_ENTRY"
	KindUndergroundExit  BuildingKind = "UNDERGROUND_EXIT"
)

// Class groups building kinds that share simulation behaviour.
type Class string

const (
	ClassBelt             Class = "BELT"
	ClassSplitter         Class = "SPLITTER"
	ClassMerger           Class = "MERGER"
	ClassRouter           Class = "ROUTER"
	ClassMiner            Class = "MINER"
	ClassProcessor        Class = "PROCESSOR"
	ClassStorage          Class = "STORAGE"
	ClassGenerator        Class = "GENERATOR"
	ClassCoalGenerator    Class = "COAL_GENERATOR"
	ClassUndergroundEntry Class = "UNDERGROUND_ENTRY"
	ClassUndergroundExit  Class = "UNDERGROUND_EXIT"
)

var knownClasses = map[Class]struct{}{
	ClassBelt:             {},
	ClassSplitter:         {},
	ClassMerger:           {},
	ClassRouter:           {},
	ClassMiner:            {},
	ClassProcessor:        {},
	ClassStorage:          {},
	ClassGenerator:        {},
	ClassCoalGenerator:    {},
	ClassUndergroundEntry: {},
	ClassUndergroundExit:  {},
}

// OreKind is the deposit type of a terrain cell.
type OreKind string

const (
	OreNone     OreKind = ""
	OreIron     OreKind = "IRON"
	OreCopper   OreKind = "COPPER"
	OreCoal     OreKind = "COAL"
	OreGold     OreKind = "GOLD"
	OreTitanium OreKind = "TITANIUM"
	OreUranium  OreKind = "URANIUM"
)

// Ores lists every deposit type in generation order.
var Ores = []OreKind{OreIron, OreCopper, OreCoal, OreGold, OreTitanium, OreUranium}
