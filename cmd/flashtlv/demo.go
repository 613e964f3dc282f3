package main

import (
	"fmt"

	"github.com/Yanye0xFF/FlashTLV/pkg/flashdrv"
	"github.com/Yanye0xFF/FlashTLV/pkg/flashtlv"
)

// runDemo reproduces the original reference firmware's main() self-test
// sequence against a freshly created image: the five seed appends, the
// 166-entry loop that forces a GC cycle, a query/verify/read of tag
// 0x1122, and a delete of tag 0xCC69. It always starts from a blank
// image regardless of whether one already exists at path, since the
// point is a repeatable fixed trace, not resuming a session.
func runDemo(path string, geo flashtlv.Geometry) error {
	top := geo.MajorAddr
	if geo.MinorAddr > top {
		top = geo.MinorAddr
	}
	sim := flashdrv.NewSim(top + geo.SectorSize)

	eng, err := flashtlv.Init(sim, geo)
	if err != nil {
		return err
	}

	fmt.Println("test_append")
	if err := demoAppend(eng); err != nil {
		return err
	}

	fmt.Println("test_gc")
	if err := demoGC(eng); err != nil {
		return err
	}

	fmt.Println("test_read")
	if err := demoRead(eng); err != nil {
		return err
	}

	fmt.Println("test_delete")
	if err := demoDelete(eng); err != nil {
		return err
	}

	if err := sim.Save(path); err != nil {
		return err
	}
	fmt.Printf("saved image to %s\n", path)

	return nil
}

func demoAppend(eng *flashtlv.Engine) error {
	appends := []struct {
		tag  uint16
		data []byte
	}{
		{0x1122, []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")},
		{0x1123, []byte("my flash tlv data container")},
		{0xCCAA, []byte{0x11, 0x22, 0x33, 0x44}},
		{0x1122, []byte("replace text")},
		{0xCC69, []byte{0x11, 0x22, 0x33, 0x44}},
	}

	for _, a := range appends {
		if _, err := eng.Append(a.tag, a.data); err != nil {
			return fmt.Errorf("append 0x%04X: %w", a.tag, err)
		}
	}
	return nil
}

func demoGC(eng *flashtlv.Engine) error {
	buf := make([]byte, 16)
	for i := 0; i < 166; i++ {
		for j := range buf {
			buf[j] = byte(i)
		}
		if _, err := eng.Append(uint16(i), buf); err != nil {
			return fmt.Errorf("append %d: %w", i, err)
		}
	}
	return nil
}

func demoRead(eng *flashtlv.Engine) error {
	block, found, err := eng.Query(0x1122)
	if err != nil {
		return err
	}
	fmt.Printf("query result:%v\n", found)
	if !found {
		return nil
	}

	verified, err := eng.Verify(block)
	if err != nil {
		return err
	}
	fmt.Printf("verify result:%v\n", verified)

	data, err := eng.Read(block, 0, block.Length)
	if err != nil {
		return err
	}
	fmt.Printf("read bytes:%d\n", len(data))
	fmt.Printf("read data: %q\n", string(data))

	return nil
}

func demoDelete(eng *flashtlv.Engine) error {
	deleted, err := eng.Delete(0xCC69)
	if err != nil {
		return err
	}
	fmt.Printf("delete result:%v\n", deleted)
	return nil
}
