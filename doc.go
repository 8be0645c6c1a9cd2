/*
SOFTSYNC finds attached sync markers in a stream of BPSK soft symbols, resolves
the 180 degree phase ambiguity of the demodulator and emits descrambled frame
payloads.

Input is a stream of little-endian float32 soft symbols, one per bit, positive
for a 0 bit. Each detected frame is reported on stdout and its payload, with
the syncword removed, is written to the payload output file.

Command-line Flags:

	-profile="ccsds"

Selects the frame format. The ccsds profile uses the 1ACFFC1D syncword, a 223
byte payload and the CCSDS pseudo-randomizer. The move2 profile uses the
49E0DCC7 syncword, a 2048 bit payload and the MOVE-II scrambling sequence.

	-syncword="" -payloadlen=0 -polarity=0

Override the syncword, payload length in bits and polarity of the profile.
Polarity selects which correlation sign is direct framing; frames detected with
the opposite sign have their polarity corrected.

	-threshold=0 -searchspan=0

Minimum absolute normalized correlation for a detection, 0.7 by default, and
the number of windows a candidate must remain the peak before it is confirmed,
one frame less one symbol by default.

	-sequence="" -ccsds=false -nodescramble=false

Override the scrambling sequence with hex bytes or the CCSDS pseudo-randomizer,
or disable descrambling.

	-fecf=false

Check a trailing CRC-16 frame error control field of each payload.

	-in="-" -out="/dev/null" -blocksize=16384 -buffer=4

Soft symbol input, payload output, samples per block and the number of blocks
buffered between processing stages.

	-format="plain"

Frame record output format: plain, csv, json or xml. Plain text is formatted
using the following format string:

	{Time:%s Offset:%d Length:%d Correlation:%+.3f Score:%+.3f SNR:%.1f}

	-loglevel="info" -metrics=""

Log level and the address to serve prometheus metrics on at /metrics.

	-config=""

Yaml file keyed by flag name. Flags given on the command line or through the
environment take precedence.

	-simulate=0 -snr=10 -seed=1

Process synthetic frames instead of reading input.

Every flag may also be given as an environment variable named SOFTSYNC_ followed
by the upper case flag name.
*/
package main
