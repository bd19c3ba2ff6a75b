// Package volcano implements the GATT protocol of the Storz & Bickel Volcano
// Hybrid: temperature read/write, heater and pump triggers, unit and status
// words. All operations run on a Session created by Discover.
package volcano

// Appliance BLE UUIDs. Every attribute follows "10xx00yy-5354-4f52-5a26-4249434b454c".
const (
	StatusServiceUUID = "10100000-5354-4f52-5a26-4249434b454c"
	StatusCharUUID    = "1010000c-5354-4f52-5a26-4249434b454c"
	UnitCharUUID      = "1010000d-5354-4f52-5a26-4249434b454c"

	ControlServiceUUID = "10110000-5354-4f52-5a26-4249434b454c"
	CurrentTempUUID    = "10110001-5354-4f52-5a26-4249434b454c"
	TargetTempUUID     = "10110003-5354-4f52-5a26-4249434b454c"
	HeaterOnUUID       = "1011000f-5354-4f52-5a26-4249434b454c"
	HeaterOffUUID      = "10110010-5354-4f52-5a26-4249434b454c"
	PumpOnUUID         = "10110013-5354-4f52-5a26-4249434b454c"
	PumpOffUUID        = "10110014-5354-4f52-5a26-4249434b454c"
)

// Status word bits.
const (
	heaterBit     = 0x0020
	pumpBit       = 0x2000
	fahrenheitBit = 0x0200
)

// DefaultNamePrefix is the advertised name prefix of the appliance.
const DefaultNamePrefix = "S&B VOLCANO"

// handle identifies one cached characteristic.
type handle int

const (
	hStatus handle = iota
	hUnit
	hCurrentTemp
	hTargetTemp
	hHeaterOn
	hHeaterOff
	hPumpOn
	hPumpOff
	numHandles
)

type charSpec struct {
	h    handle
	uuid string
}

// discoveryPlan lists, per service, the characteristics to resolve in order.
var discoveryPlan = []struct {
	service string
	chars   []charSpec
}{
	{StatusServiceUUID, []charSpec{
		{hStatus, StatusCharUUID},
		{hUnit, UnitCharUUID},
	}},
	{ControlServiceUUID, []charSpec{
		{hCurrentTemp, CurrentTempUUID},
		{hTargetTemp, TargetTempUUID},
		{hHeaterOn, HeaterOnUUID},
		{hHeaterOff, HeaterOffUUID},
		{hPumpOn, PumpOnUUID},
		{hPumpOff, PumpOffUUID},
	}},
}

// discoverySteps is the number of progress reports in a full discovery:
// one per service plus one per characteristic.
const discoverySteps = 2 + int(numHandles)
