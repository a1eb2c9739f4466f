package bluez

import (
	"bytes"
	"testing"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/taoyao-code/camera-bridge/internal/camera"
)

const testDevice = dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_01")

func TestDevicePath(t *testing.T) {
	p, err := DevicePath(AdapterPath("hci0"), "aa:bb:cc:dd:ee:01")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p != testDevice {
		t.Fatalf("path=%s", p)
	}
	for _, bad := range []string{"", "AA:BB", "AA:BB:CC:DD:EE:GG", "AAA:BB:CC:DD:EE:01"} {
		if _, err := DevicePath("/org/bluez/hci0", bad); err == nil {
			t.Fatalf("%q accepted", bad)
		}
	}
	if AdapterPath("/org/bluez/hci1") != "/org/bluez/hci1" {
		t.Fatalf("absolute adapter path rewritten")
	}
}

func sampleObjects() managedObjects {
	svc := testDevice + "/service0010"
	other := testDevice + "/service0001"
	return managedObjects{
		testDevice: {deviceInterface: {"Connected": dbus.MakeVariant(true)}},
		svc: {serviceInterface: {"UUID": dbus.MakeVariant(camera.ServiceUUID)}},
		svc + "/char0011": {charInterface: {
			"UUID":    dbus.MakeVariant(camera.ControlTxCharUUID),
			"Service": dbus.MakeVariant(svc),
		}},
		svc + "/char0013": {charInterface: {
			"UUID":    dbus.MakeVariant("B864E140-76A0-416A-BF30-5876504537D9"),
			"Service": dbus.MakeVariant(svc),
		}},
		other: {serviceInterface: {"UUID": dbus.MakeVariant("00001800-0000-1000-8000-00805f9b34fb")}},
		other + "/char0002": {charInterface: {
			"UUID":    dbus.MakeVariant("00002a00-0000-1000-8000-00805f9b34fb"),
			"Service": dbus.MakeVariant(other),
		}},
		// 其他设备下的同 UUID 特征不应被收录
		"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_02/service0010/char0011": {charInterface: {
			"UUID":    dbus.MakeVariant(camera.ControlTxCharUUID),
			"Service": dbus.MakeVariant(dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_02/service0010")),
		}},
	}
}

func TestIndexCharacteristics(t *testing.T) {
	idx := indexCharacteristics(sampleObjects(), testDevice)

	p, ok := idx.lookup(camera.ServiceUUID, camera.ControlTxCharUUID)
	if !ok || p != testDevice+"/service0010/char0011" {
		t.Fatalf("tx=%s ok=%v", p, ok)
	}
	if p, ok := idx.lookup(camera.ServiceUUID, camera.ControlRxCharUUID); !ok || p != testDevice+"/service0010/char0013" {
		t.Fatalf("rx=%s ok=%v (uuid case must not matter)", p, ok)
	}
	if _, ok := idx.lookup(camera.ServiceUUID, camera.CameraStatusUUID); ok {
		t.Fatalf("status characteristic should be missing")
	}
	if len(idx) != 2 {
		t.Fatalf("services=%d", len(idx))
	}
}

func propsSignal(path dbus.ObjectPath, iface string, changed map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: path,
		Name: propertiesIface + "." + propertiesChanged,
		Body: []interface{}{iface, changed, []string{}},
	}
}

func TestChangedValue(t *testing.T) {
	sig := propsSignal(testDevice+"/service0010/char0013", charInterface,
		map[string]dbus.Variant{"Value": dbus.MakeVariant([]byte{255, 5, 0, 0, 1, 13, 1, 0, 6})})
	v, ok := changedValue(sig)
	if !ok || len(v) != 9 || v[8] != 6 {
		t.Fatalf("value=%v ok=%v", v, ok)
	}

	if _, ok := changedValue(propsSignal(testDevice, charInterface, map[string]dbus.Variant{"Notifying": dbus.MakeVariant(true)})); ok {
		t.Fatalf("notifying change treated as value")
	}
	if _, ok := changedValue(propsSignal(testDevice, deviceInterface, map[string]dbus.Variant{"Value": dbus.MakeVariant([]byte{1})})); ok {
		t.Fatalf("device interface accepted")
	}
	if _, ok := changedValue(&dbus.Signal{Name: "org.bluez.Other", Body: []interface{}{}}); ok {
		t.Fatalf("foreign signal accepted")
	}
}

func TestDevice_HandleSignal(t *testing.T) {
	charPath := testDevice + "/service0010/char0013"
	d := &Device{
		path:   testDevice,
		subs:   make(map[dbus.ObjectPath]map[uint64]func([]byte)),
		logger: zap.NewNop(),
	}
	d.connected.Store(true)

	var got [][]byte
	cancel := d.subscribe(charPath, func(b []byte) { got = append(got, b) })

	d.handleSignal(propsSignal(charPath, charInterface, map[string]dbus.Variant{"Value": dbus.MakeVariant([]byte{1, 2})}))
	d.handleSignal(propsSignal(testDevice+"/service0010/char0011", charInterface, map[string]dbus.Variant{"Value": dbus.MakeVariant([]byte{9})}))
	if len(got) != 1 || !bytes.Equal(got[0], []byte{1, 2}) {
		t.Fatalf("got=%v", got)
	}

	cancel()
	d.handleSignal(propsSignal(charPath, charInterface, map[string]dbus.Variant{"Value": dbus.MakeVariant([]byte{3})}))
	if len(got) != 1 {
		t.Fatalf("delivered after cancel")
	}

	d.handleSignal(propsSignal(testDevice, deviceInterface, map[string]dbus.Variant{"Connected": dbus.MakeVariant(false)}))
	if d.Connected() {
		t.Fatalf("still connected")
	}
}
