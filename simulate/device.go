package simulate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Device 模拟设备的共享状态，多个会话可同时修改
type Device struct {
	mu       sync.RWMutex
	cfg      DeviceConfig
	dataDir  string
	hostname string
	secret   string
}

func newDevice(cfg DeviceConfig, dataDir string) *Device {
	if cfg.Hostname == "" {
		cfg.Hostname = "Router"
	}
	return &Device{cfg: cfg, dataDir: dataDir, hostname: cfg.Hostname, secret: cfg.Secret}
}

// Hostname 当前主机名
func (d *Device) Hostname() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hostname
}

// Secret 当前 enable secret
func (d *Device) Secret() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.secret
}

func (d *Device) setSecret(s string) {
	d.mu.Lock()
	d.secret = s
	d.mu.Unlock()
}

func (d *Device) setHostname(h string) {
	d.mu.Lock()
	d.hostname = h
	d.mu.Unlock()
}

func (d *Device) checkLogin(user, pass string) bool {
	if d.cfg.AskUsername && user != d.cfg.Username {
		return false
	}
	return pass == d.cfg.Password
}

func (d *Device) checkSecret(s string) bool {
	return s == d.Secret()
}

// output 查找命令输出：先读数据目录中的文件，再用内置输出。找不到返回 false
func (d *Device) output(cmd string, privileged bool) (string, bool) {
	if out, ok := d.loadCommandOutput(cmd); ok {
		return out, true
	}
	return d.builtin(cmd, privileged)
}

// loadCommandOutput 依次尝试 <cmd>.txt 与空格替换为下划线的文件名
func (d *Device) loadCommandOutput(cmd string) (string, bool) {
	if d.dataDir == "" {
		return "", false
	}
	base := filepath.Join(d.dataDir, d.Hostname())
	for _, name := range []string{cmd, strings.ReplaceAll(cmd, " ", "_")} {
		if strings.ContainsAny(name, `/\|`) {
			continue
		}
		if bs, err := os.ReadFile(filepath.Join(base, name+".txt")); err == nil {
			return ensureCRLF(string(bs)), true
		}
	}
	return "", false
}

func (d *Device) builtin(cmd string, privileged bool) (string, bool) {
	host := d.Hostname()
	switch cmd {
	case "show version":
		return fmt.Sprintf(versionOutput, host), true
	case "show inventory":
		return inventoryOutput, true
	case "show arp":
		return arpOutput, true
	case "show ip interface brief":
		return ipInterfaceBriefOutput, true
	case "show clock":
		return "*10:15:42.123 UTC Fri Oct 16 2026\r\n", true
	case "show interfaces status":
		if !d.cfg.Switch {
			return "", false
		}
		return interfacesStatusOutput, true
	case "show running-config":
		if !privileged {
			return "", false
		}
		return d.runningConfig(), true
	}
	return "", false
}

func (d *Device) runningConfig() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var b strings.Builder
	b.WriteString("Building configuration...\r\n\r\nCurrent configuration : 1342 bytes\r\n!\r\n")
	b.WriteString("version 15.2\r\nservice timestamps log datetime msec\r\n!\r\n")
	fmt.Fprintf(&b, "hostname %s\r\n!\r\n", d.hostname)
	if d.secret != "" {
		b.WriteString("enable secret 5 $1$mERr$hx5rVt7rPNoS4wqbXKX7m0\r\n!\r\n")
	}
	b.WriteString("interface GigabitEthernet0/0\r\n ip address 10.0.0.2 255.255.255.0\r\n!\r\n")
	b.WriteString("line vty 0 4\r\n login local\r\n transport input telnet ssh\r\n!\r\nend\r\n")
	return b.String()
}

// canonical 展开常用缩写，如 sh run、conf t
func canonical(cmd string) string {
	f := strings.Fields(strings.ToLower(cmd))
	if len(f) == 0 {
		return ""
	}
	expand := map[string]string{
		"sh": "show", "conf": "configure", "config": "configure", "t": "terminal", "term": "terminal",
		"run": "running-config", "ver": "version", "inv": "inventory",
		"int": "interface", "br": "brief", "len": "length",
	}
	for i, w := range f {
		if full, ok := expand[w]; ok {
			f[i] = full
		}
	}
	s := strings.Join(f, " ")
	if s == "show interface status" {
		s = "show interfaces status"
	}
	return s
}

// ensureCRLF 统一为 \r\n，并保证以换行结尾
func ensureCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\r\n")
	if !strings.HasSuffix(s, "\r\n") {
		s += "\r\n"
	}
	return s
}

const versionOutput = "Cisco IOS Software, C2900 Software (C2900-UNIVERSALK9-M), Version 15.2(4)M6, RELEASE SOFTWARE (fc2)\r\n" +
	"Technical Support: http://www.cisco.com/techsupport\r\n" +
	"Copyright (c) 1986-2014 by Cisco Systems, Inc.\r\n" +
	"\r\n" +
	"ROM: System Bootstrap, Version 15.0(1r)M16, RELEASE SOFTWARE (fc1)\r\n" +
	"\r\n" +
	"%s uptime is 2 weeks, 3 days, 4 hours, 5 minutes\r\n" +
	"System image file is \"flash0:c2900-universalk9-mz.SPA.152-4.M6.bin\"\r\n" +
	"\r\n" +
	"Cisco CISCO2911/K9 (revision 1.0) with 483328K/40960K bytes of memory.\r\n" +
	"Configuration register is 0x2102\r\n"

const inventoryOutput = `NAME: "CISCO2911/K9 chassis", DESCR: "CISCO2911/K9 chassis, Hw Serial#: FTX1234ABCD, Hw Revision: 1.0"` + "\r\n" +
	`PID: CISCO2911/K9      , VID: V06 , SN: FTX1234ABCD` + "\r\n" +
	"\r\n" +
	`NAME: "PVDM3-32 on Slot 0", DESCR: "PVDMIII DSP SIMM with two DSPs on Slot 0 SubSlot 4"` + "\r\n" +
	`PID: PVDM3-32          , VID: V01 , SN: FOC5678EFGH` + "\r\n"

const arpOutput = "Protocol  Address          Age (min)  Hardware Addr   Type   Interface\r\n" +
	"Internet  10.0.0.1                3   0011.2233.4455  ARPA   GigabitEthernet0/0\r\n" +
	"Internet  10.0.0.2                -   0011.2233.4466  ARPA   GigabitEthernet0/0\r\n"

const ipInterfaceBriefOutput = "Interface                  IP-Address      OK? Method Status                Protocol\r\n" +
	"GigabitEthernet0/0         10.0.0.2        YES NVRAM  up                    up\r\n" +
	"GigabitEthernet0/1         unassigned      YES NVRAM  administratively down down\r\n" +
	"GigabitEthernet0/2         192.168.1.1     YES manual up                    up\r\n"

const interfacesStatusOutput = "\r\nPort      Name               Status       Vlan       Duplex  Speed Type\r\n" +
	"Gi0/1     uplink             connected    trunk      a-full a-1000 10/100/1000BaseTX\r\n" +
	"Gi0/2     server-a           connected    10         a-full a-1000 10/100/1000BaseTX\r\n" +
	"Gi0/3                        notconnect   1            auto   auto 10/100/1000BaseTX\r\n"
