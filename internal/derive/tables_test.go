package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvwtools/dvw-cli/api/schemas"
)

func TestTableName(t *testing.T) {
	cases := []struct {
		name  string
		node  schemas.Node
		table string
	}{
		{"hub", node("1", schemas.KindHub, "Customer", nil), "customer_h"},
		{"link", node("2", schemas.KindLink, "Customer Order", nil), "customer_order_l"},
		{"satellite standard", node("3", schemas.KindSatellite, "Customer Details", nil), "customer_details_s"},
		{"satellite multi-active", node("4", schemas.KindSatellite, "Phones", schemas.Properties{
			schemas.PropSatelliteType: string(schemas.SatMultiActive),
		}), "phones_mas"},
		{"satellite effectivity", node("5", schemas.KindSatellite, "Membership", schemas.Properties{
			schemas.PropSatelliteType: string(schemas.SatEffectivity),
		}), "membership_es"},
		{"satellite non-historized", node("6", schemas.KindSatellite, "Events", schemas.Properties{
			schemas.PropSatelliteType: string(schemas.SatNonHistorized),
		}), "events_nhs"},
		{"satellite record-tracking", node("7", schemas.KindSatellite, "Presence", schemas.Properties{
			schemas.PropSatelliteType: string(schemas.SatRecordTracking),
		}), "presence_rts"},
		{"reference table", node("8", schemas.KindReference, "Country", nil), "country_r"},
		{"reference hub", node("9", schemas.KindReference, "Country", schemas.Properties{
			schemas.PropReferenceType: string(schemas.RefHub),
		}), "country_rh"},
		{"reference satellite", node("10", schemas.KindReference, "Rates", schemas.Properties{
			schemas.PropReferenceType: string(schemas.RefSatellite),
		}), "rates_rs"},
		{"pit", node("11", schemas.KindPIT, "Customer PIT", nil), "customer_pit_bp"},
		{"bridge", node("12", schemas.KindBridge, "Order Bridge", nil), "order_bridge_bs"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.table, TableName(tc.node))
		})
	}
}

func TestTableNameOverride(t *testing.T) {
	n := node("1", schemas.KindHub, "Customer", schemas.Properties{
		schemas.PropTableName: "dim_customer",
	})
	assert.Equal(t, "dim_customer", TableName(n))
}
