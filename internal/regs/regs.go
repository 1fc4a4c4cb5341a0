// Package regs carries the memory-mapped register layout of the supported
// chip family: offsets, bit positions and masks as fixed by the reference
// manual. It is a pure constant table; all access semantics live in regmap
// and the peripheral packages.
package regs

// ---------------------------------- RCC --------------------------------------

const (
	RCC_CR      = 0x00 // oscillator control
	RCC_ICSCR   = 0x04
	RCC_CFGR    = 0x08 // sysclk switch, AHB/APB prescalers, MCO
	RCC_PLLCFGR = 0x0C
	RCC_CIER    = 0x18
	RCC_IOPRSTR = 0x24
	RCC_APBRSTR1 = 0x2C
	RCC_IOPENR  = 0x34 // GPIO port clock enables
	RCC_APBENR1 = 0x3C
	RCC_CSR1    = 0x5C // LSE control, LSCO
	RCC_CSR2    = 0x60 // LSI control
)

// RCC_CR bits.
const (
	CR_HSION     = 1 << 8
	CR_HSIRDY    = 1 << 10
	CR_HSIDIV_Pos = 11
	CR_HSIDIV_Msk = 0x7 << CR_HSIDIV_Pos
	CR_HSEON     = 1 << 16
	CR_HSERDY    = 1 << 17
	CR_HSEBYP    = 1 << 18
	CR_PLLON     = 1 << 24
	CR_PLLRDY    = 1 << 25
)

// RCC_CFGR fields.
const (
	CFGR_SW_Pos     = 0
	CFGR_SW_Msk     = 0x7 << CFGR_SW_Pos
	CFGR_SWS_Pos    = 3
	CFGR_SWS_Msk    = 0x7 << CFGR_SWS_Pos
	CFGR_HPRE_Pos   = 8
	CFGR_HPRE_Msk   = 0xF << CFGR_HPRE_Pos
	CFGR_PPRE_Pos   = 12
	CFGR_PPRE_Msk   = 0x7 << CFGR_PPRE_Pos
	CFGR_MCOSEL_Pos = 24
	CFGR_MCOSEL_Msk = 0x7 << CFGR_MCOSEL_Pos
	CFGR_MCOPRE_Pos = 28
	CFGR_MCOPRE_Msk = 0x7 << CFGR_MCOPRE_Pos
)

// System clock switch encodings (SW/SWS).
const (
	SW_HSISYS = 0b000
	SW_HSE    = 0b001
	SW_PLL    = 0b010
	SW_LSI    = 0b011
	SW_LSE    = 0b100
)

// RCC_PLLCFGR fields.
const (
	PLLCFGR_PLLN_Pos = 8 // multiplier
	PLLCFGR_PLLN_Msk = 0x7F << PLLCFGR_PLLN_Pos
	PLLCFGR_PLLR_Pos = 29 // output divider, encoded value+1
	PLLCFGR_PLLR_Msk = 0x7 << PLLCFGR_PLLR_Pos
)

// RCC_CSR1/CSR2 bits.
const (
	CSR1_LSEON    = 1 << 0
	CSR1_LSERDY   = 1 << 1
	CSR1_LSEBYP   = 1 << 2
	CSR1_LSCOEN   = 1 << 24
	CSR1_LSCOSEL  = 1 << 25 // 0 = LSI, 1 = LSE
	CSR2_LSION    = 1 << 0
	CSR2_LSIRDY   = 1 << 1
)

// RCC_IOPENR / IOPRSTR bits, one per GPIO port.
const (
	IOP_A = 1 << 0
	IOP_B = 1 << 1
	IOP_C = 1 << 2
)

// RCC_APBENR1 / APBRSTR1 bits.
const (
	APB1_I2C1 = 1 << 21
	APB1_I2C2 = 1 << 22
)

// --------------------------------- GPIO --------------------------------------

const (
	GPIO_MODER   = 0x00 // 2 bits per pin
	GPIO_OTYPER  = 0x04
	GPIO_OSPEEDR = 0x08
	GPIO_PUPDR   = 0x0C // 2 bits per pin
	GPIO_IDR     = 0x10
	GPIO_ODR     = 0x14
	GPIO_BSRR    = 0x18
	GPIO_AFRL    = 0x20 // 4 bits per pin, pins 0..7
	GPIO_AFRH    = 0x24 // 4 bits per pin, pins 8..15
)

// MODER encodings.
const (
	ModerInput  = 0b00
	ModerOutput = 0b01
	ModerAltFn  = 0b10
	ModerAnalog = 0b11
)

// ---------------------------------- I2C --------------------------------------

const (
	I2C_CR1     = 0x00
	I2C_CR2     = 0x04
	I2C_OAR1    = 0x08
	I2C_OAR2    = 0x0C
	I2C_TIMINGR = 0x10
	I2C_ISR     = 0x18
	I2C_ICR     = 0x1C
	I2C_RXDR    = 0x24
	I2C_TXDR    = 0x28
)

// I2C_CR1 bits.
const (
	I2C_CR1_PE         = 1 << 0
	I2C_CR1_DNF_Pos    = 8
	I2C_CR1_DNF_Msk    = 0xF << I2C_CR1_DNF_Pos
	I2C_CR1_ANFOFF     = 1 << 12
)

// I2C_CR2 fields.
const (
	I2C_CR2_SADD_Pos   = 0 // 10 bits; 7-bit addresses sit at bits 1..7
	I2C_CR2_SADD_Msk   = 0x3FF << I2C_CR2_SADD_Pos
	I2C_CR2_RD_WRN     = 1 << 10
	I2C_CR2_ADD10      = 1 << 11
	I2C_CR2_START      = 1 << 13
	I2C_CR2_STOP       = 1 << 14
	I2C_CR2_NACK       = 1 << 15
	I2C_CR2_NBYTES_Pos = 16
	I2C_CR2_NBYTES_Msk = 0xFF << I2C_CR2_NBYTES_Pos
	I2C_CR2_RELOAD     = 1 << 24
	I2C_CR2_AUTOEND    = 1 << 25
)

// I2C_ISR bits.
const (
	I2C_ISR_TXE   = 1 << 0
	I2C_ISR_TXIS  = 1 << 1
	I2C_ISR_RXNE  = 1 << 2
	I2C_ISR_NACKF = 1 << 4
	I2C_ISR_STOPF = 1 << 5
	I2C_ISR_TC    = 1 << 6
	I2C_ISR_TCR   = 1 << 7
	I2C_ISR_BERR  = 1 << 8
	I2C_ISR_ARLO  = 1 << 9
	I2C_ISR_OVR   = 1 << 10
	I2C_ISR_BUSY  = 1 << 15
)

// I2C_ICR write-1-to-clear bits.
const (
	I2C_ICR_NACKCF = 1 << 4
	I2C_ICR_STOPCF = 1 << 5
	I2C_ICR_BERRCF = 1 << 8
	I2C_ICR_ARLOCF = 1 << 9
	I2C_ICR_OVRCF  = 1 << 10
)

// ---------------------------------- IWDG -------------------------------------

const (
	IWDG_KR  = 0x00
	IWDG_PR  = 0x04
	IWDG_RLR = 0x08
	IWDG_SR  = 0x0C
)

// IWDG_KR keys.
const (
	IWDG_KEY_FEED   = 0xAAAA
	IWDG_KEY_ACCESS = 0x5555
	IWDG_KEY_START  = 0xCCCC
)

const IWDG_RLR_Max = 0xFFF
