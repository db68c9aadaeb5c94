// Package syscalls provides the Linux x86-64 syscall-number -> argument
// count table the parser consults to compute argc for `syscall(code)`
// forms. The table is transcribed from the kernel's
// arch/x86/entry/syscalls/syscall_64.tbl and is inert data, not
// load-bearing logic; validate it against the kernel tree before trusting
// a rarely used entry.
package syscalls

// MaxCode is the highest syscall number the table covers (inclusive).
const MaxCode = 332

// argc maps syscall number -> argument count (0..6). Syscalls that were
// later removed from the kernel (e.g. old System V IPC stubs, uselib) are
// still present here with their historical argc, since the table's
// contract is "every code 0..=332 resolves to a count", not "every code is
// still implemented by a running kernel".
var argc = [MaxCode + 1]int{
	0: 3, 1: 3, 2: 3, 3: 1, 4: 2, 5: 2, 6: 2, 7: 3, 8: 3, 9: 6,
	10: 3, 11: 2, 12: 1, 13: 4, 14: 4, 15: 0, 16: 3, 17: 4, 18: 4, 19: 3,
	20: 3, 21: 2, 22: 1, 23: 5, 24: 0, 25: 5, 26: 3, 27: 3, 28: 3, 29: 3,
	30: 3, 31: 3, 32: 1, 33: 2, 34: 0, 35: 2, 36: 2, 37: 1, 38: 3, 39: 0,
	40: 4, 41: 3, 42: 3, 43: 3, 44: 6, 45: 6, 46: 3, 47: 3, 48: 2, 49: 3,
	50: 2, 51: 3, 52: 3, 53: 4, 54: 5, 55: 5, 56: 5, 57: 0, 58: 0, 59: 3,
	60: 1, 61: 4, 62: 2, 63: 1, 64: 3, 65: 3, 66: 4, 67: 1, 68: 2, 69: 4,
	70: 5, 71: 3, 72: 3, 73: 2, 74: 1, 75: 1, 76: 2, 77: 2, 78: 3, 79: 2,
	80: 1, 81: 1, 82: 2, 83: 2, 84: 1, 85: 2, 86: 2, 87: 1, 88: 2, 89: 3,
	90: 2, 91: 2, 92: 3, 93: 3, 94: 3, 95: 1, 96: 2, 97: 2, 98: 2, 99: 1,
	100: 1, 101: 4, 102: 0, 103: 3, 104: 0, 105: 1, 106: 1, 107: 0, 108: 0, 109: 2,
	110: 0, 111: 0, 112: 0, 113: 2, 114: 2, 115: 2, 116: 2, 117: 3, 118: 3, 119: 3,
	120: 3, 121: 1, 122: 1, 123: 1, 124: 1, 125: 2, 126: 2, 127: 2, 128: 4, 129: 3,
	130: 2, 131: 2, 132: 2, 133: 3, 134: 1, 135: 1, 136: 2, 137: 2, 138: 2, 139: 3,
	140: 2, 141: 3, 142: 2, 143: 2, 144: 3, 145: 1, 146: 1, 147: 1, 148: 2, 149: 2,
	150: 2, 151: 1, 152: 0, 153: 0, 154: 3, 155: 2, 156: 1, 157: 5, 158: 2, 159: 1,
	160: 2, 161: 1, 162: 0, 163: 1, 164: 2, 165: 5, 166: 2, 167: 2, 168: 1, 169: 4,
	170: 2, 171: 2, 172: 1, 173: 3, 174: 2, 175: 3, 176: 2, 177: 1, 178: 5, 179: 4,
	180: 3, 181: 5, 182: 5, 183: 0, 184: 0, 185: 0, 186: 0, 187: 3, 188: 5, 189: 5,
	190: 5, 191: 4, 192: 4, 193: 4, 194: 3, 195: 3, 196: 3, 197: 2, 198: 2, 199: 2,
	200: 2, 201: 1, 202: 6, 203: 3, 204: 3, 205: 1, 206: 2, 207: 1, 208: 5, 209: 3,
	210: 3, 211: 1, 212: 3, 213: 1, 214: 4, 215: 4, 216: 5, 217: 3, 218: 1, 219: 0,
	220: 4, 221: 4, 222: 3, 223: 4, 224: 2, 225: 1, 226: 1, 227: 2, 228: 2, 229: 2,
	230: 4, 231: 1, 232: 4, 233: 4, 234: 3, 235: 2, 236: 0, 237: 6, 238: 3, 239: 5,
	240: 4, 241: 1, 242: 5, 243: 5, 244: 2, 245: 3, 246: 4, 247: 5, 248: 5, 249: 4,
	250: 5, 251: 3, 252: 2, 253: 0, 254: 3, 255: 2, 256: 4, 257: 4, 258: 3, 259: 4,
	260: 5, 261: 3, 262: 4, 263: 3, 264: 4, 265: 5, 266: 3, 267: 4, 268: 3, 269: 3,
	270: 6, 271: 5, 272: 1, 273: 2, 274: 3, 275: 6, 276: 4, 277: 4, 278: 4, 279: 6,
	280: 4, 281: 6, 282: 3, 283: 2, 284: 1, 285: 4, 286: 4, 287: 2, 288: 4, 289: 4,
	290: 2, 291: 1, 292: 3, 293: 2, 294: 1, 295: 5, 296: 5, 297: 4, 298: 5, 299: 5,
	300: 2, 301: 5, 302: 4, 303: 5, 304: 3, 305: 2, 306: 1, 307: 4, 308: 2, 309: 3,
	310: 6, 311: 6, 312: 5, 313: 3, 314: 3, 315: 4, 316: 5, 317: 3, 318: 3, 319: 2,
	320: 5, 321: 3, 322: 5, 323: 1, 324: 2, 325: 3, 326: 6, 327: 6, 328: 6, 329: 4,
	330: 2, 331: 1, 332: 5,
}

// Argc returns the argument count for a Linux x86-64 syscall number, and
// whether code falls within the table's covered range (0..=332).
func Argc(code int) (int, bool) {
	if code < 0 || code > MaxCode {
		return 0, false
	}
	return argc[code], true
}
