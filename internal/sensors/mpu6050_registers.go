package sensors

// MPU-6050 register addresses.
const (
	regSmplrtDiv   = 0x19
	regConfig      = 0x1A
	regGyroConfig  = 0x1B
	regAccelConfig = 0x1C
	regAccelXOutH  = 0x3B // 14-byte burst: accel XYZ, temp, gyro XYZ
	regPwrMgmt1    = 0x6B
	regWhoAmI      = 0x75
)

const (
	whoAmIValue = 0x68 // WHO_AM_I reports 0x68 regardless of the AD0 pin

	pwrClockPLLGyroX = 0x01
	pwrSleep         = 1 << 6

	burstLen = 14
)

// accelLSBPerG is the sensitivity for ACCEL_FS_SEL 0..3 (±2g..±16g).
var accelLSBPerG = [4]float64{16384, 8192, 4096, 2048}

// gyroLSBPerDPS is the sensitivity for FS_SEL 0..3 (±250..±2000 °/s).
var gyroLSBPerDPS = [4]float64{131, 65.5, 32.8, 16.4}

// configRegisters are the registers bring-up writes, in address order.
var configRegisters = []byte{
	regSmplrtDiv,
	regConfig,
	regGyroConfig,
	regAccelConfig,
	regPwrMgmt1,
	regWhoAmI,
}
