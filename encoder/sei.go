package encoder

// seiUUID identifies TIGAS frame-sync SEI messages (spec §4.6). Chosen to
// read as ASCII when inspected in a hex dump: "TIGAS-SEI-000001". Attached
// to every frame as AVFrameSideData by the cgo encoder; for nvenc outputs
// tigas_encoder.c additionally rewrites the encoded packet to prepend the
// same UUID/payload as a standalone SEI NAL, since frame-side-data is not
// guaranteed to survive into nvenc's bitstream.
var seiUUID = [16]byte{
	0x54, 0x49, 0x47, 0x41, 0x53, 0x2D, 0x53, 0x45,
	0x49, 0x2D, 0x30, 0x30, 0x30, 0x30, 0x30, 0x31,
}
