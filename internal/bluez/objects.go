// Package bluez 基于 BlueZ D-Bus 的 GATT 链路实现
package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	busName            = "org.bluez"
	adapterInterface   = "org.bluez.Adapter1"
	deviceInterface    = "org.bluez.Device1"
	serviceInterface   = "org.bluez.GattService1"
	charInterface      = "org.bluez.GattCharacteristic1"
	propertiesIface    = "org.freedesktop.DBus.Properties"
	propertiesChanged  = "PropertiesChanged"
	managedObjectsCall = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

// managedObjects GetManagedObjects 的返回结构
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// AdapterPath hci 名称转对象路径
func AdapterPath(adapter string) dbus.ObjectPath {
	if strings.HasPrefix(adapter, "/") {
		return dbus.ObjectPath(adapter)
	}
	return dbus.ObjectPath("/org/bluez/" + adapter)
}

// DevicePath 由适配器与 MAC 组装设备对象路径：/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF
func DevicePath(adapter dbus.ObjectPath, mac string) (dbus.ObjectPath, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(mac)), ":")
	if len(parts) != 6 {
		return "", fmt.Errorf("invalid bluetooth address %q", mac)
	}
	for _, p := range parts {
		if len(p) != 2 || strings.Trim(p, "0123456789ABCDEF") != "" {
			return "", fmt.Errorf("invalid bluetooth address %q", mac)
		}
	}
	return dbus.ObjectPath(string(adapter) + "/dev_" + strings.Join(parts, "_")), nil
}

// charIndex service UUID -> characteristic UUID -> 对象路径（UUID 均小写）
type charIndex map[string]map[string]dbus.ObjectPath

func (idx charIndex) lookup(service, char string) (dbus.ObjectPath, bool) {
	chars, ok := idx[strings.ToLower(service)]
	if !ok {
		return "", false
	}
	p, ok := chars[strings.ToLower(char)]
	return p, ok
}

// indexCharacteristics 从托管对象中挑出设备下的全部 GATT 特征
func indexCharacteristics(objects managedObjects, device dbus.ObjectPath) charIndex {
	prefix := string(device) + "/"
	services := make(map[dbus.ObjectPath]string)
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		if svc, ok := ifaces[serviceInterface]; ok {
			if uuid, ok := stringProp(svc, "UUID"); ok {
				services[path] = strings.ToLower(uuid)
			}
		}
	}

	idx := make(charIndex)
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		ch, ok := ifaces[charInterface]
		if !ok {
			continue
		}
		uuid, ok := stringProp(ch, "UUID")
		if !ok {
			continue
		}
		svcPath, ok := ch["Service"].Value().(dbus.ObjectPath)
		if !ok {
			continue
		}
		svcUUID, ok := services[svcPath]
		if !ok {
			continue
		}
		if idx[svcUUID] == nil {
			idx[svcUUID] = make(map[string]dbus.ObjectPath)
		}
		idx[svcUUID][strings.ToLower(uuid)] = path
	}
	return idx
}

func stringProp(props map[string]dbus.Variant, name string) (string, bool) {
	v, ok := props[name]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

// changedValue 从 PropertiesChanged 信号中取出特征 Value
// 信号体：interface, changed a{sv}, invalidated as
func changedValue(sig *dbus.Signal) ([]byte, bool) {
	if sig == nil || sig.Name != propertiesIface+"."+propertiesChanged || len(sig.Body) < 2 {
		return nil, false
	}
	if iface, _ := sig.Body[0].(string); iface != charInterface {
		return nil, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, false
	}
	v, ok := changed["Value"]
	if !ok {
		return nil, false
	}
	b, ok := v.Value().([]byte)
	return b, ok
}

// changedConnected 设备 Connected 属性变化
func changedConnected(sig *dbus.Signal) (connected bool, ok bool) {
	if sig == nil || sig.Name != propertiesIface+"."+propertiesChanged || len(sig.Body) < 2 {
		return false, false
	}
	if iface, _ := sig.Body[0].(string); iface != deviceInterface {
		return false, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false, false
	}
	v, ok := changed["Connected"]
	if !ok {
		return false, false
	}
	connected, ok = v.Value().(bool)
	return connected, ok
}
